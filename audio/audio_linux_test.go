//go:build linux

package audio

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/assert"
)

func TestClassifyPulseCodes(t *testing.T) {
	denied := classify(fmt.Errorf("pulse record: %w", proto.Error(paErrAccess)))
	assert.ErrorIs(t, denied, ErrPermissionDenied)
	assert.False(t, errors.Is(denied, ErrNoDevice))

	missing := classify(fmt.Errorf("pulse record: %w", proto.Error(paErrNoEntity)))
	assert.ErrorIs(t, missing, ErrNoDevice)
	assert.False(t, errors.Is(missing, ErrPermissionDenied))
}
