// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package i18n localizes client-facing messages.

English text is the message key. Every key is registered for English and
Ukrainian in a single golang.org/x/text catalog, and the best match for the
caller's Accept-Language header picks the printer.

Usage:

	msg := i18n.Translate(request.Header.Get("Accept-Language"), i18n.MsgTokenRevoked)
*/
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// # Message Keys

const (
	MsgBadCredentials       = "Incorrect username or password"
	MsgEmailNotConfirmed    = "Email is not confirmed"
	MsgUserExists           = "User already exists"
	MsgEmailExists          = "Email already exists"
	MsgTokenRevoked         = "Token revoked"
	MsgInvalidCredentials   = "Could not validate credentials"
	MsgInvalidRefreshToken  = "Invalid refresh token"
	MsgInsufficientRights   = "Insufficient access rights"
	MsgModeratorWelcome     = "Welcome, %s! This is a moderator-only route"
	MsgAdminWelcome         = "Welcome, %s! This is an administrative route"
	MsgEmailAlreadyConfirm  = "Your email is already confirmed"
	MsgEmailConfirmed       = "Email confirmed"
	MsgCheckEmail           = "Check your email to confirm"
	MsgWrongEmailToken      = "Wrong token for email confirmation"
	MsgVerificationError    = "Verification error"
	MsgContactNotFound      = "Contact not found"
	MsgContactExists        = "Contact already exists"
	MsgNoUpcomingBirthdays  = "No upcoming birthdays in the next 7 days"
	MsgRateLimited          = "Requests limit exceeded. Try again later."
	MsgMissingBearer        = "Not authenticated"
	MsgWrongPassword        = "Current password is incorrect"
	MsgResetSent            = "If this email is registered, a reset link has been sent"
	MsgWrongResetToken      = "Wrong token for password reset"
	MsgPasswordUpdated      = "Password updated successfully"
	MsgValidationFailed     = "Validation failed"
	MsgInvalidJSON          = "Invalid JSON payload"
	MsgUnexpected           = "An unexpected error occurred"
	MsgAvatarMissing        = "Avatar file is required"
	MsgAvatarUploadDisabled = "Avatar upload is not configured"
)

// ukrainian holds the Ukrainian rendering of every key.
var ukrainian = map[string]string{
	MsgBadCredentials:       "Неправильне ім'я користувача або пароль",
	MsgEmailNotConfirmed:    "Електронна адреса не підтверджена",
	MsgUserExists:           "Користувач з таким іменем вже існує",
	MsgEmailExists:          "Користувач з такою електронною адресою вже існує",
	MsgTokenRevoked:         "Токен відкликано",
	MsgInvalidCredentials:   "Не вдалося перевірити облікові дані",
	MsgInvalidRefreshToken:  "Недійсний токен оновлення",
	MsgInsufficientRights:   "Недостатньо прав доступу",
	MsgModeratorWelcome:     "Вітаємо, %s! Це маршрут лише для модераторів",
	MsgAdminWelcome:         "Вітаємо, %s! Це адміністративний маршрут",
	MsgEmailAlreadyConfirm:  "Ваша електронна адреса вже підтверджена",
	MsgEmailConfirmed:       "Електронну адресу підтверджено",
	MsgCheckEmail:           "Перевірте свою електронну пошту для підтвердження",
	MsgWrongEmailToken:      "Неправильний токен для підтвердження електронної пошти",
	MsgVerificationError:    "Помилка верифікації",
	MsgContactNotFound:      "Контакт не знайдено",
	MsgContactExists:        "Контакт з такою електронною адресою вже існує",
	MsgNoUpcomingBirthdays:  "Немає днів народження протягом наступних 7 днів",
	MsgRateLimited:          "Перевищено ліміт запитів. Спробуйте пізніше.",
	MsgMissingBearer:        "Не автентифіковано",
	MsgWrongPassword:        "Поточний пароль неправильний",
	MsgResetSent:            "Якщо цю адресу зареєстровано, посилання для скидання надіслано",
	MsgWrongResetToken:      "Неправильний токен для скидання пароля",
	MsgPasswordUpdated:      "Пароль успішно оновлено",
	MsgValidationFailed:     "Помилка валідації",
	MsgInvalidJSON:          "Некоректний JSON",
	MsgUnexpected:           "Сталася неочікувана помилка",
	MsgAvatarMissing:        "Потрібен файл аватара",
	MsgAvatarUploadDisabled: "Завантаження аватара не налаштовано",
}

var (
	supported = []language.Tag{language.English, language.Ukrainian}
	matcher   = language.NewMatcher(supported)
	messages  = buildCatalog()
)

func buildCatalog() catalog.Catalog {
	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, translated := range ukrainian {
		_ = builder.SetString(language.English, key, key)
		_ = builder.SetString(language.Ukrainian, key, translated)
	}
	return builder
}

// Match resolves an Accept-Language header to one of the supported tags.
// Unparseable or unsupported values fall back to English.
func Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.English
	}

	// The index keeps us on the bare supported tag; the matched tag may carry
	// a -u-rg- extension that the catalog would not recognise.
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return language.English
	}
	return supported[index]
}

// Printer returns a message printer for the caller's preferred language.
func Printer(acceptLanguage string) *message.Printer {
	return message.NewPrinter(Match(acceptLanguage), message.Catalog(messages))
}

// Translate renders key (optionally formatted with args) in the best matching language.
func Translate(acceptLanguage, key string, args ...any) string {
	return Printer(acceptLanguage).Sprintf(key, args...)
}
