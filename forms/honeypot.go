package forms

// HoneypotField is the form field hidden from real users.
const HoneypotField = "company"

// IsLikelyBot reports whether the honeypot field was filled in.
func IsLikelyBot(honeypot string) bool {
	return honeypot != ""
}
