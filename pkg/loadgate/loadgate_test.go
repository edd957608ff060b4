package loadgate

import (
	"errors"
	"io"
	"os"
	"testing"

	"github.com/cuemby/curfew/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, Output: io.Discard})
	os.Exit(m.Run())
}

type fixedReader struct {
	load float64
	err  error
}

func (f fixedReader) Load1() (float64, error) { return f.load, f.err }

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		load    float64
		ceiling float64
		wantOK  bool
	}{
		{"well below ceiling", 0.5, 1.5, true},
		{"above ceiling", 2.0, 1.5, false},
		{"equal to ceiling passes", 1.5, 1.5, true},
		{"just above ceiling", 1.51, 1.5, false},
		{"idle host", 0.0, 1.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGate(fixedReader{load: tt.load}, tt.ceiling)

			ok, load, err := g.Check()
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.load, load)
		})
	}
}

func TestCheckReaderError(t *testing.T) {
	g := NewGate(fixedReader{err: errors.New("no procfs")}, 1.5)

	ok, _, err := g.Check()
	assert.Error(t, err)
	assert.False(t, ok)
}
