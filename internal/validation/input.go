package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinTitleLength       = 3
	MaxTitleLength       = 200
	MaxDescriptionLength = 5000
	MaxScopeLength       = 5000
	MaxNotesLength       = 2000
	MaxMaterialLength    = 200
	MaxMaterialsCount    = 100
	MaxSignerNameLength  = 200
	MinMessageLength     = 1
	MaxMessageLength     = 5000
	MaxAddressLength     = 300
)

// ValidateLength проверяет длину строки.
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

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.ToLower(strings.TrimSpace(email))

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart := parts[0]
	domainPart := parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}

	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}

	localRegex := regexp.MustCompile(`^[a-z0-9._+-]+$`)
	if !localRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}

	domainRegex := regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	if !domainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidateProposalTitle проверяет заголовок предложения.
func ValidateProposalTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("заголовок предложения обязателен")
	}
	return ValidateLength("заголовок предложения", strings.TrimSpace(title), MinTitleLength, MaxTitleLength)
}

// ValidateSignerName проверяет имя подписанта. Пробельное имя
// приравнивается к пустому.
func ValidateSignerName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("имя подписанта обязательно")
	}
	return ValidateLength("имя подписанта", name, 1, MaxSignerNameLength)
}

// NormalizeMaterials разбивает строку материалов по запятым, обрезает
// пробелы и выбрасывает пустые элементы. Повторное применение к уже
// нормализованному списку даёт тот же результат.
func NormalizeMaterials(raw string) []string {
	parts := strings.Split(raw, ",")
	materials := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		materials = append(materials, part)
	}
	return materials
}

// ValidateMaterials проверяет нормализованный список материалов.
func ValidateMaterials(materials []string) error {
	if len(materials) > MaxMaterialsCount {
		return fmt.Errorf("количество материалов не может превышать %d", MaxMaterialsCount)
	}
	for _, m := range materials {
		if utf8.RuneCountInString(m) > MaxMaterialLength {
			return fmt.Errorf("материал не может быть длиннее %d символов", MaxMaterialLength)
		}
	}
	return nil
}

// ValidateMessageContent проверяет содержимое сообщения.
func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("сообщение не может быть пустым")
	}
	return ValidateLength("сообщение", strings.TrimSpace(content), MinMessageLength, MaxMessageLength)
}

// ValidateAddress проверяет адрес дома.
func ValidateAddress(address string) error {
	if strings.TrimSpace(address) == "" {
		return fmt.Errorf("адрес обязателен")
	}
	return ValidateLength("адрес", strings.TrimSpace(address), 1, MaxAddressLength)
}

// ValidateExternalLink проверяет внешнюю ссылку.
func ValidateExternalLink(link *string) error {
	if link != nil && *link != "" {
		linkStr := strings.TrimSpace(*link)

		parsedURL, err := url.Parse(linkStr)
		if err != nil {
			return fmt.Errorf("некорректный формат URL")
		}

		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return fmt.Errorf("ссылка должна начинаться с http:// или https://")
		}

		if parsedURL.Host == "" {
			return fmt.Errorf("ссылка должна содержать доменное имя")
		}
	}
	return nil
}
