package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// SessionCodeAlphabet символы кода входа в сессию.
// Без 0/O и 1/I, чтобы код можно было продиктовать.
const SessionCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// SessionCodeLen длина кода входа
const SessionCodeLen = 6

var sessionCodePattern = regexp.MustCompile(`^[` + SessionCodeAlphabet + `]{6}$`)

// ParticipantIDPattern допустимый формат id участника
var ParticipantIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.:-]{1,128}$`)

// NormalizeSessionCode приводит введенный код к каноничному виду
func NormalizeSessionCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateSessionCode проверяет код входа в сессию
func ValidateSessionCode(code string) error {
	if code == "" {
		return fmt.Errorf("session code cannot be empty")
	}
	if !sessionCodePattern.MatchString(code) {
		return fmt.Errorf("session code must be %d characters from %s", SessionCodeLen, SessionCodeAlphabet)
	}
	return nil
}

// ValidateParticipantID проверяет id участника
func ValidateParticipantID(id string) error {
	if id == "" {
		return fmt.Errorf("participant id cannot be empty")
	}
	if !ParticipantIDPattern.MatchString(id) {
		return fmt.Errorf("participant id %q may only contain letters, numbers, '_', '-', '.' and ':'", id)
	}
	return nil
}
