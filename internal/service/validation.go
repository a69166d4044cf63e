package service

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"bookmarket/internal/apperr"
	"bookmarket/internal/models"
)

const (
	maxTitleLen       = 200
	minDescriptionLen = 10
	maxDescriptionLen = 1000
	maxImages         = 10

	maxEmailLen    = 255
	minPasswordLen = 8
	maxPasswordLen = 100
	minNameLen     = 2
	maxNameLen     = 50
)

var angleBrackets = strings.NewReplacer("<", "", ">", "")

// sanitize strips angle brackets and surrounding whitespace from free text.
func sanitize(s string) string {
	return strings.TrimSpace(angleBrackets.Replace(s))
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// priceFromAmount converts a client amount in currency units to cents.
func priceFromAmount(amount *float64) (models.Price, error) {
	if amount == nil {
		return 0, apperr.Validation("price is required")
	}
	if *amount < 0 || *amount > models.MaxPrice.Float() {
		return 0, apperr.Validation("price must be between 0 and %s", models.MaxPrice)
	}
	return models.PriceFromFloat(*amount), nil
}

func validateHTTPURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return apperr.Validation("%s must be an absolute http or https URL", field)
	}
	return nil
}

// validateListing checks the write-time rules on an already sanitised listing.
func validateListing(l models.Listing) error {
	switch n := runeLen(l.Title); {
	case n == 0:
		return apperr.Validation("title is required")
	case n > maxTitleLen:
		return apperr.Validation("title must be at most %d characters", maxTitleLen)
	}

	if !l.Condition.Valid() {
		return apperr.Validation("condition must be one of %s", conditionList())
	}

	if l.Price < 0 || l.Price > models.MaxPrice {
		return apperr.Validation("price must be between 0 and %s", models.MaxPrice)
	}

	if n := runeLen(l.Description); n < minDescriptionLen || n > maxDescriptionLen {
		return apperr.Validation("description must be between %d and %d characters", minDescriptionLen, maxDescriptionLen)
	}

	if l.SellerProfile == "" {
		return apperr.Validation("sellerProfile is required")
	}
	if err := validateHTTPURL("sellerProfile", l.SellerProfile); err != nil {
		return err
	}

	return validateImages(l.Images)
}

func validateImages(images []string) error {
	if len(images) == 0 {
		return apperr.Validation("at least one image is required")
	}
	if len(images) > maxImages {
		return apperr.Validation("at most %d images are allowed", maxImages)
	}
	for i, img := range images {
		if strings.TrimSpace(img) == "" {
			return apperr.Validation("image %d is empty", i+1)
		}
	}
	return nil
}

func conditionList() string {
	names := make([]string, 0, len(models.Conditions))
	for _, c := range models.Conditions {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return apperr.Validation("email is required")
	}
	if len(email) > maxEmailLen {
		return apperr.Validation("email must be at most %d characters", maxEmailLen)
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " <>") {
		return apperr.Validation("email is invalid")
	}
	return nil
}

func validatePassword(password string) error {
	if n := runeLen(password); n < minPasswordLen || n > maxPasswordLen {
		return apperr.Validation("password must be between %d and %d characters", minPasswordLen, maxPasswordLen)
	}
	return nil
}

func validateName(name string) error {
	if n := runeLen(name); n < minNameLen || n > maxNameLen {
		return apperr.Validation("name must be between %d and %d characters", minNameLen, maxNameLen)
	}
	return nil
}
