package tool

import (
	"context"
	"encoding"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/descant-dev/descant/pkg/reflectx"
	"github.com/descant-dev/descant/pkg/slogx"
	"github.com/descant-dev/descant/types"
	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// Call invokes the tool with the model-provided JSON argument payload.
// Payload arguments are matched by the definition's parameter names;
// context.Context and ContextVars parameters are injected from the caller.
// The function's result is serialized to the string handed back to the model.
func (td Definition) Call(ctx context.Context, arguments string, contextVars types.ContextVars) (string, error) {
	if !reflectx.IsFunction(td.Function) {
		return "", fmt.Errorf("tool %s has no function", td.Name)
	}
	args := buildArgList(arguments, td.Parameters)
	return callFunction(ctx, td.Function, args, contextVars)
}

// buildArgList decodes the JSON payload into positional values, ordered by the
// declaration order encoded in the parameter map's "paramN" keys.
func buildArgList(arguments string, parameters map[string]string) []reflect.Value {
	args := gjson.Parse(arguments)

	targs := make([]string, len(parameters))
	for k, v := range parameters {
		ns := strings.TrimPrefix(k, "param")
		i, _ := strconv.Atoi(ns)
		if i < 0 || i >= len(targs) {
			continue
		}
		targs[i] = v
	}

	toolArgs := make([]reflect.Value, 0) //nolint: prealloc
	for _, arg := range targs {
		if arg == "" {
			continue
		}

		val := args.Get(arg)
		if !val.Exists() {
			continue
		}

		toolArgs = append(toolArgs, reflect.ValueOf(val.Value()))
	}
	return toolArgs
}

func callFunction(ctx context.Context, fn any, args []reflect.Value, contextVars types.ContextVars) (string, error) {
	val := reflect.ValueOf(fn)
	vtpe := val.Type()

	numIn := vtpe.NumIn()
	callArgs := make([]reflect.Value, numIn)

	ai := 0
	for fi := 0; fi < numIn; fi++ {
		paramType := vtpe.In(fi)
		switch {
		case paramType == ctxType:
			callArgs[fi] = reflect.ValueOf(ctx)
		case reflectx.IsRefinedType[types.ContextVars](paramType):
			callArgs[fi] = reflect.ValueOf(contextVars)
		default:
			if ai < len(args) {
				vv := args[ai]
				if vv.IsValid() && vv.Type().ConvertibleTo(paramType) {
					callArgs[fi] = vv.Convert(paramType)
				}
			}
			if !callArgs[fi].IsValid() {
				callArgs[fi] = reflect.Zero(paramType)
			}
			ai++
		}
	}

	results := val.Call(callArgs)
	if len(results) == 0 {
		return "", nil
	}

	// a trailing error return aborts serialization of the value
	if last := results[len(results)-1]; last.IsValid() {
		if err, ok := last.Interface().(error); ok {
			if err != nil {
				return "", err
			}
			results = results[:len(results)-1]
			if len(results) == 0 {
				return "", nil
			}
		}
	}

	res := results[0]
	if !res.IsValid() {
		return "", nil
	}

	switch rv := res.Interface().(type) {
	case error:
		return "", rv
	case string:
		return rv, nil
	case time.Time:
		return rv.Format(time.RFC3339), nil
	case int, int8, int16, int32, int64:
		return strconv.FormatInt(reflect.ValueOf(rv).Int(), 10), nil
	case uint, uint8, uint16, uint32, uint64:
		return strconv.FormatUint(reflect.ValueOf(rv).Uint(), 10), nil
	case float32, float64:
		return strconv.FormatFloat(reflect.ValueOf(rv).Float(), 'f', -1, 64), nil
	case encoding.TextMarshaler:
		b, err := rv.MarshalText()
		if err != nil {
			slog.Error("marshalling tool result", slogx.Error(err))
			return "", err
		}
		return string(b), nil
	case fmt.Stringer:
		return rv.String(), nil
	default:
		b, err := json.Marshal(rv)
		if err != nil {
			slog.Error("marshalling tool result", slogx.Error(err))
			return "", err
		}
		return string(b), nil
	}
}
