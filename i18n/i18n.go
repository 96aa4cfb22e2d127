package i18n

import "strings"

// French is the primary language of the product; English is best-effort.
const defaultLang = "fr"

var translations = map[string]map[string]string{
	"fr": {
		"required":            "Requis",
		"too_short":           "Trop court",
		"invalid_option":      "Valeur non autorisée",
		"login":               "Connexion",
		"logout":              "Déconnexion",
		"signup":              "Inscription",
		"dashboard":           "Tableau de bord",
		"tickets":             "Interventions",
		"groups":              "Groupes",
		"new_ticket":          "Nouveau ticket",
		"ticket_created":      "Le ticket a été créé avec succès",
		"ticket_updated":      "Le ticket a été mis à jour avec succès",
		"ticket_deleted":      "Le ticket a été supprimé avec succès",
		"group_created":       "Le groupe a été créé avec succès",
		"group_deleted":       "Le groupe a été supprimé avec succès",
		"form_not_found":      "Formulaire non trouvé",
		"intervention_access": "Accès intervention",
		"access_denied":       "Accès refusé",
		"form_submitted":      "Le formulaire a été soumis avec succès",
		"backend_error":       "Une erreur est survenue, veuillez réessayer plus tard",
		"invalid_credentials": "Identifiants invalides",
	},
	"en": {
		"required":            "Required",
		"too_short":           "Too short",
		"invalid_option":      "Invalid option",
		"login":               "Log in",
		"logout":              "Log out",
		"signup":              "Sign up",
		"dashboard":           "Dashboard",
		"tickets":             "Interventions",
		"groups":              "Groups",
		"new_ticket":          "New ticket",
		"ticket_created":      "Ticket created successfully",
		"ticket_updated":      "Ticket updated successfully",
		"ticket_deleted":      "Ticket deleted successfully",
		"group_created":       "Group created successfully",
		"group_deleted":       "Group deleted successfully",
		"form_not_found":      "Form not found",
		"intervention_access": "Intervention access",
		"access_denied":       "Access denied",
		"form_submitted":      "The form was submitted successfully",
		"backend_error":       "An error occurred, please try again later",
		"invalid_credentials": "Invalid credentials",
	},
}

// T translates a message code for the given language. Unknown languages fall
// back to French; unknown codes fall back to the code itself so missing
// entries stay visible instead of rendering blank.
func T(lang, code string) string {
	if m, ok := translations[lang]; ok {
		if msg, ok := m[code]; ok {
			return msg
		}
	}
	if lang != defaultLang {
		if msg, ok := translations[defaultLang][code]; ok {
			return msg
		}
	}
	return code
}

// DetectLanguage picks a supported language from an Accept-Language header.
func DetectLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.ToLower(strings.TrimSpace(part))
		if i := strings.IndexAny(tag, "-;"); i >= 0 {
			tag = tag[:i]
		}
		if _, ok := translations[tag]; ok {
			return tag
		}
	}
	return defaultLang
}
