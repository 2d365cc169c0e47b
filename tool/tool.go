package tool

import (
	"context"
	"fmt"
	"reflect"

	"github.com/descant-dev/descant/pkg/reflectx"
	"github.com/descant-dev/descant/pkg/stdx"
	"github.com/descant-dev/descant/types"
	"github.com/fogfish/opts"
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Definition describes a callable capability the model may request by name.
// It carries the tool's wire name, its description, the names of the
// function's payload parameters, and the Go function that implements it.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]string
	Function    any
}

var functionReflector = jsonschema.Reflector{
	AllowAdditionalProperties: true,
	DoNotReference:            true,
}

var ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()

// injected reports whether a parameter is supplied by the runtime rather than
// decoded from the model's argument payload.
func injected(paramType reflect.Type) bool {
	return paramType == ctxType || reflectx.IsRefinedType[types.ContextVars](paramType)
}

// ToNameAndSchema returns the tool's wire name and a JSON schema describing
// its argument object, derived from the implementing function's signature.
// Runtime-injected parameters (context.Context, ContextVars) are excluded.
func (td Definition) ToNameAndSchema() (string, *jsonschema.Schema) {
	name := td.Name
	if name == "" {
		name = reflectx.FunctionName(td.Function)
	}

	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: orderedmap.New[string, *jsonschema.Schema](),
	}

	typ := reflect.TypeOf(td.Function)
	if typ == nil || typ.Kind() != reflect.Func {
		return name, schema
	}

	var required []string
	argIdx := 0
	for i := 0; i < typ.NumIn(); i++ {
		paramType := typ.In(i)
		if injected(paramType) {
			continue
		}

		paramName := fmt.Sprintf("param%d", argIdx)
		if td.Parameters != nil {
			if p, ok := td.Parameters[paramName]; ok {
				paramName = p
			}
		}
		argIdx++

		propSchema := functionReflector.ReflectFromType(paramType)
		propSchema.Version = ""
		schema.Properties.Set(paramName, propSchema)
		required = append(required, paramName)
	}
	if len(required) > 0 {
		schema.Required = required
	}

	return name, schema
}

// Option configures a tool definition.
type Option = opts.Option[Definition]

// Must wraps New and panics on error. Intended for package-level tool
// declarations where a bad definition is a programming error.
func Must(f any, options ...Option) Definition {
	return stdx.Must1(New(f, options...))
}

// New creates a tool definition from the provided function and options. If no
// Name option is given the function's own name is used.
func New(f any, options ...Option) (Definition, error) {
	if !reflectx.IsFunction(f) {
		return Definition{}, fmt.Errorf("provided value is not a function")
	}

	var def Definition
	if err := opts.Apply(&def, options); err != nil {
		return Definition{}, err
	}
	if def.Name == "" {
		def.Name = reflectx.FunctionName(f)
	}

	def.Function = f
	return def, nil
}

// Name sets the tool's wire name.
var Name = opts.ForName[Definition, string]("Name")

// Description sets the description shown to the model.
var Description = opts.ForName[Definition, string]("Description")

// Parameters names the function's payload parameters in declaration order.
// Parameters left unnamed keep their positional "paramN" key.
func Parameters(parameters ...string) Option {
	return opts.Type[Definition](func(o *Definition) error {
		o.Parameters = make(map[string]string, len(parameters))
		for i, p := range parameters {
			o.Parameters[fmt.Sprintf("param%d", i)] = p
		}
		return nil
	})
}
