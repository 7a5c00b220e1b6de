package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/iudanet/repsync/internal/models"
)

// EntityTypePattern определяет допустимый формат типа сущности
// Латинская буква, затем буквы, цифры, '_' или '-'. Длина: 1-64 символа
var EntityTypePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]{0,63}$`)

// EntityIDPattern определяет допустимый формат id сущности
// Буквы, цифры, '_', '-', '.' и ':'. Длина: 1-128 символов
var EntityIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.:-]{1,128}$`)

const (
	// MaxPayloadFields максимальное число полей в одной мутации
	MaxPayloadFields = 256
	// MaxFieldNameLen максимальная длина имени поля
	MaxFieldNameLen = 64
)

// ValidateEntityType проверяет тип сущности
func ValidateEntityType(entityType string) error {
	if entityType == "" {
		return fmt.Errorf("entity type cannot be empty")
	}
	if !EntityTypePattern.MatchString(entityType) {
		return fmt.Errorf("entity type %q must start with a letter and contain only letters, numbers, '_' and '-' (max 64)", entityType)
	}
	return nil
}

// ValidateEntityID проверяет id сущности
func ValidateEntityID(id string) error {
	if id == "" {
		return fmt.Errorf("entity id cannot be empty")
	}
	if !EntityIDPattern.MatchString(id) {
		return fmt.Errorf("entity id %q may only contain letters, numbers, '_', '-', '.' and ':' (max 128)", id)
	}
	return nil
}

// ValidatePayload проверяет поля мутации. Для create и update нужно хотя бы
// одно поле, delete не несет полей.
func ValidatePayload(op models.Operation, payload map[string]any) error {
	switch op {
	case models.OperationCreate, models.OperationUpdate:
		if len(payload) == 0 {
			return fmt.Errorf("%s requires a non-empty payload", op)
		}
	case models.OperationDelete:
		if len(payload) != 0 {
			return fmt.Errorf("delete must not carry a payload")
		}
		return nil
	default:
		return fmt.Errorf("unknown operation %q", op)
	}

	if len(payload) > MaxPayloadFields {
		return fmt.Errorf("payload must not exceed %d fields", MaxPayloadFields)
	}
	for name := range payload {
		if name == "" || len(name) > MaxFieldNameLen || strings.TrimSpace(name) != name {
			return fmt.Errorf("invalid field name %q", name)
		}
	}
	return nil
}

// ValidateWrite проверяет запись целиком
func ValidateWrite(entityType, id string, op models.Operation, payload map[string]any) error {
	if err := ValidateEntityType(entityType); err != nil {
		return err
	}
	if err := ValidateEntityID(id); err != nil {
		return err
	}
	return ValidatePayload(op, payload)
}
