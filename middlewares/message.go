package middlewares

var Responses = struct {
	FailedValidations   *NewRM
	InternalServerError *NewRM
	InvalidRoles        *NewRM
	OrderNotFound       *NewRM
	OrderAlreadyPaid    *NewRM
	OrderAlreadyExists  *NewRM
	GatewayUnavailable  *NewRM
	UserNotFound        *NewRM
	CallbackAccepted    *NewRM
	CallbackRetry       *NewRM
}{
	FailedValidations: &NewRM{
		Language.English: "Failed field validations",
		Language.Swahili: "Uthibitishaji wa sehemu umeshindikana",
	},
	InternalServerError: &NewRM{
		Language.English: "Internal server error",
		Language.Swahili: "Hitilafu ya seva",
	},
	InvalidRoles: &NewRM{
		Language.English: "Invalid roles",
		Language.Swahili: "Huna ruhusa ya kufanya kitendo hiki",
	},
	OrderNotFound: &NewRM{
		Language.English: "Order not found",
		Language.Swahili: "Oda haikupatikana",
	},
	OrderAlreadyPaid: &NewRM{
		Language.English: "Order already paid",
		Language.Swahili: "Oda tayari imelipwa",
	},
	OrderAlreadyExists: &NewRM{
		Language.English: "Order already exists",
		Language.Swahili: "Oda tayari ipo",
	},
	GatewayUnavailable: &NewRM{
		Language.English: "Payment gateway unavailable",
		Language.Swahili: "Huduma ya malipo haipatikani",
	},
	UserNotFound: &NewRM{
		Language.English: "User not found",
		Language.Swahili: "Mtumiaji hakupatikana",
	},
	CallbackAccepted: &NewRM{
		Language.English: "Callback received",
	},
	CallbackRetry: &NewRM{
		Language.English: "Callback could not be processed",
	},
}

type NewRM map[string]string

// In returns the message in lang, falling back to English.
func (m *NewRM) In(lang string) string {
	if m == nil {
		return ""
	}
	if message, ok := (*m)[lang]; ok {
		return message
	}
	return (*m)[Language.English]
}

var Language = struct {
	English string
	Swahili string
}{
	English: "en",
	Swahili: "sw",
}

var LanguageMap = map[string]string{
	Language.Swahili: "Swahili",
	Language.English: "English",
}
