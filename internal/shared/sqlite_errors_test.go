package shared

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsSQLiteConflictError(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"nil":          {nil, false},
		"busy":         {errors.New("SQLITE_BUSY: database table is locked"), true},
		"locked":       {errors.New("database is locked (5)"), true},
		"wrapped busy": {fmt.Errorf("save simulation: %w", errors.New("SQLITE_BUSY")), true},
		"constraint":   {errors.New("UNIQUE constraint failed: simulations.id"), false},
		"unrelated":    {errors.New("connection refused"), false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := IsSQLiteConflictError(tc.err); got != tc.want {
				t.Errorf("IsSQLiteConflictError(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
