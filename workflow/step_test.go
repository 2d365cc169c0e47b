package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func double() Step[int, int] {
	return New("double", func(_ context.Context, in int) (int, error) {
		return in * 2, nil
	})
}

func addOne() Step[int, int] {
	return New("addone", func(_ context.Context, in int) (int, error) {
		return in + 1, nil
	})
}

func failing(opts ...Option) Step[int, int] {
	return New("failing", func(_ context.Context, in int) (int, error) {
		return 0, errBoom
	}, opts...)
}

func TestNew_Defaults(t *testing.T) {
	s := double()
	assert.Equal(t, "double", s.Name())
	assert.Equal(t, Raise, s.Mode())
	assert.Equal(t, "double", s.Describe())

	out, err := s.Run(context.Background(), 21)
	require.NoError(t, err)
	assert.Equal(t, 42, out)
}

func TestNew_OnError(t *testing.T) {
	s := New("noop", func(_ context.Context, in int) (int, error) { return in, nil }, OnError(Pass))
	assert.Equal(t, Pass, s.Mode())
}

func TestRunOne(t *testing.T) {
	t.Run("raise mode returns the error", func(t *testing.T) {
		_, ok, err := RunOne(context.Background(), failing(), 1)
		assert.False(t, ok)
		assert.ErrorIs(t, err, errBoom)
	})

	t.Run("pass mode returns absent", func(t *testing.T) {
		_, ok, err := RunOne(context.Background(), failing(OnError(Pass)), 1)
		assert.False(t, ok)
		assert.NoError(t, err)
	})

	t.Run("shape errors stay fatal under pass", func(t *testing.T) {
		s := New("shapeless", func(_ context.Context, in int) (int, error) {
			return 0, &ShapeError{Step: "shapeless", Want: "[]int", Got: "int"}
		}, OnError(Pass))

		_, ok, err := RunOne(context.Background(), s, 1)
		assert.False(t, ok)
		var shapeErr *ShapeError
		assert.ErrorAs(t, err, &shapeErr)
	})
}

func TestThen(t *testing.T) {
	composed := Then(double(), addOne())

	out, err := composed.Run(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 11, out)
	assert.Equal(t, "double | addone", composed.Describe())
	assert.Equal(t, Raise, composed.Mode())
}

func TestThen_Associativity(t *testing.T) {
	a, b, c := double(), addOne(), addOne()

	left := Then(Then(a, b), c)
	right := Then(a, Then(b, c))

	for _, in := range []int{0, 2, 7} {
		lv, err := left.Run(context.Background(), in)
		require.NoError(t, err)
		rv, err := right.Run(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, lv, rv)
	}
}

func TestThen_ErrorPropagation(t *testing.T) {
	composed := Then(failing(), addOne())
	_, err := composed.Run(context.Background(), 1)
	assert.ErrorIs(t, err, errBoom)

	composed = Then(double(), Map(addOne(), func(in int) (int, error) { return 0, errBoom }))
	_, err = composed.Run(context.Background(), 1)
	assert.ErrorIs(t, err, errBoom)
}

func TestThen_InheritsMode(t *testing.T) {
	composed := Then(failing(OnError(Pass)), addOne())
	assert.Equal(t, Pass, composed.Mode())

	overridden := Then(failing(OnError(Pass)), addOne(), OnError(Raise))
	assert.Equal(t, Raise, overridden.Mode())
}

func TestMap(t *testing.T) {
	mapped := Map(double(), func(in int) (int, error) { return in + 10, nil })

	out, err := mapped.Run(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 14, out)
	assert.Contains(t, mapped.Describe(), "double |> map(")
}

func TestMap_FnFailureObeysMode(t *testing.T) {
	mapped := Map(double(), func(int) (int, error) { return 0, errBoom }, OnError(Pass))

	_, err := mapped.Run(context.Background(), 1)
	assert.ErrorIs(t, err, errBoom, "bare Run always reports the failure")

	out, err := RunBatch(context.Background(), mapped, []int{1, 2})
	require.NoError(t, err)
	assert.Empty(t, out, "pass mode drops failed items at the fan-out layer")
}

func TestFlatMap(t *testing.T) {
	toList := New("tolist", func(_ context.Context, in int) ([]int, error) {
		return []int{in, in + 1}, nil
	})

	flat := FlatMap(toList, addOne())
	out, err := flat.Run(context.Background(), 3)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{4, 5}, out)
	assert.Equal(t, "tolist |> flat-map(addone)", flat.Describe())
}

func TestFlatMap_NotASlice(t *testing.T) {
	notAList := New("notalist", func(_ context.Context, in int) (any, error) {
		return in, nil
	})

	for _, mode := range []ErrorMode{Raise, Pass} {
		t.Run(string(mode), func(t *testing.T) {
			flat := FlatMap(notAList, addOne(), OnError(mode))
			_, err := flat.Run(context.Background(), 1)
			var shapeErr *ShapeError
			require.ErrorAs(t, err, &shapeErr)
			assert.Equal(t, "notalist", shapeErr.Step)

			// the fan-out layer must not swallow it either
			_, err = RunBatch(context.Background(), flat, []int{1})
			assert.ErrorAs(t, err, &shapeErr)
		})
	}
}

func TestFlatMap_PassDropsElements(t *testing.T) {
	toList := New("tolist", func(_ context.Context, in int) ([]int, error) {
		return []int{1, 2, 3}, nil
	})
	evensFail := New("evensfail", func(_ context.Context, in int) (int, error) {
		if in%2 == 0 {
			return 0, errBoom
		}
		return in, nil
	}, OnError(Pass))

	flat := FlatMap(toList, evensFail)
	out, err := flat.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 3}, out)
}

func TestFlatMap_ZeroSurvivors(t *testing.T) {
	toList := New("tolist", func(_ context.Context, in int) ([]int, error) {
		return []int{1, 2}, nil
	})
	allFail := New("allfail", func(_ context.Context, in int) (int, error) {
		return 0, errBoom
	}, OnError(Pass))

	out, err := FlatMap(toList, allFail).Run(context.Background(), 0)
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestDescribe_Composition(t *testing.T) {
	pipeline := Then(Map(double(), func(in int) (int, error) { return in, nil }), addOne())
	desc := pipeline.Describe()
	assert.Contains(t, desc, "double |> map(")
	assert.Contains(t, desc, " | addone")
}
