package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinNameLength        = 2
	MaxNameLength        = 100
	MinJobTitleLength    = 3
	MaxJobTitleLength    = 100
	MinJobDescriptionLength = 10
	MaxJobDescriptionLength = 10000
	MinProposalLength    = 10
	MaxProposalLength    = 5000
	MaxSkillLength       = 50
	MaxSkillsCount       = 50
	MinJobBudget         = 5.0
	MaxBudget            = 100000000.0 // 100 миллионов
	MaxFeedbackLength    = 2000
	MinMessageLength     = 1
	MaxMessageLength     = 5000
	MinPasswordLength    = 8
)

var emailRegexp = regexp.MustCompile(`^[\w\-.]+@([\w-]+\.)+[\w-]{2,}$`)

// ValidateLength проверяет длину строки в рунах.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRegexp.MatchString(email) {
		return fmt.Errorf("неверный формат email")
	}
	return nil
}

// ValidateSkills проверяет список навыков.
func ValidateSkills(skills []string) error {
	if len(skills) > MaxSkillsCount {
		return fmt.Errorf("навыков не может быть более %d", MaxSkillsCount)
	}
	for _, s := range skills {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("навык не может быть пустым")
		}
		if utf8.RuneCountInString(s) > MaxSkillLength {
			return fmt.Errorf("навык не может быть длиннее %d символов", MaxSkillLength)
		}
	}
	return nil
}

// ValidateAmount проверяет денежную сумму.
func ValidateAmount(fieldName string, amount, min float64) error {
	if amount < min {
		return fmt.Errorf("%s должна быть не менее %.2f", fieldName, min)
	}
	if amount > MaxBudget {
		return fmt.Errorf("%s слишком велика", fieldName)
	}
	return nil
}
