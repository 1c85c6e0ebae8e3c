// Package email implements the normalizer and parser: syntactic
// validation, local/domain split, alias stripping, and lowercase
// canonicalization. It is the single entry point an EmailInput must
// pass through before any probe sees it.
package email

import (
	"strings"

	"signalguard/internal/models"
)

const (
	maxLocalPartLen = 64
	maxLabelLen     = 63
)

// AliasCapableDomains lists the domains on which a '+' in the local-part
// is known to be a routable alias separator. Kept small and explicit
// rather than guessed, since alias semantics vary by provider.
var AliasCapableDomains = map[string]bool{
	"gmail.com":      true,
	"googlemail.com": true,
	"outlook.com":    true,
	"hotmail.com":    true,
	"live.com":       true,
	"yahoo.com":      true,
	"fastmail.com":   true,
	"protonmail.com": true,
	"proton.me":      true,
}

// Parse validates raw and splits it into a ParsedEmail. It returns a
// *models.HardReject for any syntactic violation; the engine must
// short-circuit scoring in that case rather than run probes.
func Parse(raw string) (models.ParsedEmail, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return models.ParsedEmail{}, models.NewHardReject("empty email")
	}

	at := strings.Count(trimmed, "@")
	if at != 1 {
		return models.ParsedEmail{}, models.NewHardReject("must contain exactly one '@'")
	}

	idx := strings.IndexByte(trimmed, '@')
	localPart := trimmed[:idx]
	domain := trimmed[idx+1:]

	if localPart == "" {
		return models.ParsedEmail{}, models.NewHardReject("local part is empty")
	}
	if len(localPart) > maxLocalPartLen {
		return models.ParsedEmail{}, models.NewHardReject("local part exceeds 64 characters")
	}
	if err := validateDomain(domain); err != nil {
		return models.ParsedEmail{}, err
	}

	lowerDomain := strings.ToLower(domain)
	isAlias := strings.Contains(localPart, "+")

	normalizedLocal := strings.ToLower(localPart)
	if isAlias && AliasCapableDomains[lowerDomain] {
		if plus := strings.IndexByte(normalizedLocal, '+'); plus >= 0 {
			normalizedLocal = normalizedLocal[:plus]
		}
	}

	return models.ParsedEmail{
		Raw:        raw,
		Normalized: normalizedLocal + "@" + lowerDomain,
		LocalPart:  localPart,
		Domain:     lowerDomain,
		IsAlias:    isAlias,
	}, nil
}

func validateDomain(domain string) error {
	if domain == "" {
		return models.NewHardReject("domain is empty")
	}
	if !strings.Contains(domain, ".") {
		return models.NewHardReject("domain must contain at least one dot")
	}
	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return models.NewHardReject("domain has leading or trailing dot")
	}

	labels := strings.Split(domain, ".")
	for _, label := range labels {
		if label == "" {
			return models.NewHardReject("domain has an empty label")
		}
		if len(label) > maxLabelLen {
			return models.NewHardReject("domain label exceeds 63 characters")
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return models.NewHardReject("domain label has leading or trailing hyphen")
		}
	}
	return nil
}
