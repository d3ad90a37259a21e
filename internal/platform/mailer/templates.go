package mailer

import (
	"fmt"
	"strings"
)

func OTPEmail(to, otp string) Message {
	return Message{
		To:      []Address{{Email: to}},
		Subject: "Your StudyBuddy verification code",
		Text:    fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.", otp),
	}
}

func ResetEmail(to, resetURL, token string) Message {
	link := token
	if strings.TrimSpace(resetURL) != "" {
		link = strings.TrimRight(resetURL, "?&") + "?token=" + token
	}
	return Message{
		To:      []Address{{Email: to}},
		Subject: "Reset your StudyBuddy password",
		Text:    fmt.Sprintf("Use the link below to reset your password. It expires in 10 minutes.\n\n%s", link),
	}
}

func ReminderEmail(to string) Message {
	return Message{
		To:      []Address{{Email: to}},
		Subject: "Final reminder: verify your StudyBuddy account",
		Text: "Your account is still unverified. Unverified accounts are removed 24 hours after registration. " +
			"Sign in and request a new code to keep it.",
	}
}
