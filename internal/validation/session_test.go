package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSessionCode(t *testing.T) {
	assert.NoError(t, ValidateSessionCode("ABC234"))
	assert.Error(t, ValidateSessionCode(""))
	assert.Error(t, ValidateSessionCode("ABC23"), "too short")
	assert.Error(t, ValidateSessionCode("ABC2340"), "too long")
	assert.Error(t, ValidateSessionCode("ABCO10"), "ambiguous characters")
	assert.Error(t, ValidateSessionCode("abc234"), "lower case must be normalized first")

	assert.Equal(t, "ABC234", NormalizeSessionCode("  abc234 "))
}

func TestValidateParticipantID(t *testing.T) {
	assert.NoError(t, ValidateParticipantID("0b6f7c1e-4a55-4c6f-9d8e-2f9a5d0c7b21"))
	assert.Error(t, ValidateParticipantID(""))
	assert.Error(t, ValidateParticipantID("bob smith"))
}
