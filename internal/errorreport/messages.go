package errorreport

import "strings"

const GenericMessage = "Something went wrong. Please try again."

// userMessages is checked in order; the first matching substring wins.
var userMessages = []struct {
	substrings []string
	message    string
}{
	{[]string{"failed to fetch", "network", "connection refused", "no such host", "load failed"},
		"We couldn't reach our servers. Please check your connection and try again."},
	{[]string{"timeout", "timed out", "deadline exceeded"},
		"The request took too long. Please try again."},
	{[]string{"rate limit", "too many requests", "429"},
		"You're doing that too often. Please wait a moment and try again."},
	{[]string{"unauthorized", "forbidden", "401", "403", "api key"},
		"We couldn't verify access to this feature. Please refresh the page."},
	{[]string{"assistant", "voice"},
		"Our voice assistant is unavailable right now. Please try again later."},
	{[]string{"invalid phone", "phone number"},
		"Please enter a valid phone number, including the area code."},
	{[]string{"webhook"},
		"We couldn't send your request. Please try again or email us directly."},
}

// suppressed errors never raise a toast.
var suppressed = []string{"failed to fetch", "network error", "load failed", "context canceled"}

func isNetwork(msg string) bool {
	return containsAny(msg, userMessages[0].substrings)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// UserMessage maps err to copy suitable for a visitor.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ToLower(err.Error())
	for _, m := range userMessages {
		if containsAny(msg, m.substrings) {
			return m.message
		}
	}
	return GenericMessage
}

// ShouldNotify reports whether err deserves a visible notification.
func ShouldNotify(err error) bool {
	if err == nil {
		return false
	}
	return !containsAny(strings.ToLower(err.Error()), suppressed)
}

// Notice is what the UI should show for an error.
type Notice struct {
	Show    bool   `json:"show"`
	Message string `json:"message"`
}

func NoticeFor(err error) Notice {
	return Notice{Show: ShouldNotify(err), Message: UserMessage(err)}
}
