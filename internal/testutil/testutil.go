package testutil

import (
	"fmt"
	"math"
	"reflect"
	"runtime/debug"
	"testing"
)

func FailOnError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		return
	}
	t.Errorf("[ERROR] %v", err)
	debug.PrintStack()
	t.FailNow()
}

func Equals(t testing.TB, exp interface{}, act interface{}, format string, args ...interface{}) {
	t.Helper()
	if reflect.DeepEqual(exp, act) {
		return
	}
	t.Errorf("[ERROR] %v. exp: %+v; act: %+v", fmt.Sprintf(format, args...), exp, act)
	debug.PrintStack()
	t.FailNow()
}

// InDelta fails when |exp-act| > delta
func InDelta(t testing.TB, exp, act, delta float64, format string, args ...interface{}) {
	t.Helper()
	if math.Abs(exp-act) <= delta {
		return
	}
	t.Errorf("[ERROR] %v. exp: %v; act: %v; delta: %v", fmt.Sprintf(format, args...), exp, act, delta)
	debug.PrintStack()
	t.FailNow()
}

// SliceInDelta compares two float slices element-wise
func SliceInDelta(t testing.TB, exp, act []float64, delta float64, format string, args ...interface{}) {
	t.Helper()
	if len(exp) != len(act) {
		t.Errorf("[ERROR] %v. exp len: %d; act len: %d", fmt.Sprintf(format, args...), len(exp), len(act))
		t.FailNow()
	}
	for i := range exp {
		InDelta(t, exp[i], act[i], delta, "%s [%d]", fmt.Sprintf(format, args...), i)
	}
}
