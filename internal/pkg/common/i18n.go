package common

// Message keys for the bilingual catalog.
const (
	MsgMinIngredients     = "min_ingredients"
	MsgTooFewRaw          = "too_few_raw_ingredients"
	MsgInvalidDifficulty  = "invalid_difficulty"
	MsgInvalidIngredient  = "invalid_ingredient"
	MsgRecipeNotFound     = "recipe_not_found"
	MsgGenerationError    = "generation_error"
	MsgInternalError      = "internal_server_error"
	MsgFeedbackSuccess    = "feedback_success"
	MsgFeedbackRejected   = "feedback_rejected"
	MsgAwaitingApproval   = "awaiting_approval"
	MsgSessionNotFound    = "session_not_found"
	MsgRecipeValidated    = "recipe_validated"
)

var messages = map[string]map[Language]string{
	MsgMinIngredients: {
		LangEN: "At least one non-default ingredient is required (ingredients like water, salt, and oil do not count)",
		LangTR: "En az bir adet default olmayan malzeme gerekli (su, tuz ve yağ gibi malzemeler sayılmaz)",
	},
	MsgTooFewRaw: {
		LangEN: "At least 3 ingredients are required",
		LangTR: "En az 3 malzeme gerekli",
	},
	MsgInvalidDifficulty: {
		LangEN: "Difficulty must be one of: easy, intermediate, hard",
		LangTR: "Zorluk seviyesi şunlardan biri olmalı: easy, intermediate, hard",
	},
	MsgInvalidIngredient: {
		LangEN: "Ingredient contains invalid characters or is too long",
		LangTR: "Malzeme geçersiz karakterler içeriyor veya çok uzun",
	},
	MsgRecipeNotFound: {
		LangEN: "No suitable recipe could be found with the ingredients you provided. Please try again with different ingredients.",
		LangTR: "İlettiğiniz malzemelerle uygun bir tarif bulunamadı. Lütfen farklı malzemelerle tekrar deneyin.",
	},
	MsgGenerationError: {
		LangEN: "Unable to process your request at this time",
		LangTR: "İsteğiniz şu anda işlenemiyor",
	},
	MsgInternalError: {
		LangEN: "Internal Server Error",
		LangTR: "Sunucu Hatası",
	},
	MsgFeedbackSuccess: {
		LangEN: "Recipe saved successfully",
		LangTR: "Tarif başarıyla kaydedildi",
	},
	MsgFeedbackRejected: {
		LangEN: "Please try again with different ingredients.",
		LangTR: "Lütfen farklı malzemelerle tekrar deneyin.",
	},
	MsgAwaitingApproval: {
		LangEN: "The recipe needs extra ingredients. Please approve or reject the suggestion.",
		LangTR: "Tarif ekstra malzemeler gerektiriyor. Lütfen öneriyi onaylayın veya reddedin.",
	},
	MsgSessionNotFound: {
		LangEN: "Resolution session not found or expired",
		LangTR: "Oturum bulunamadı veya süresi doldu",
	},
	MsgRecipeValidated: {
		LangEN: "Recipe looks delicious and follows all rules!",
		LangTR: "Tarif harika görünüyor ve tüm kurallara uygun!",
	},
}

// Message returns the catalog entry for key in lang, falling back to
// English when the key or language is missing.
func Message(key string, lang Language) string {
	entry, ok := messages[key]
	if !ok {
		return key
	}
	if msg, ok := entry[lang]; ok {
		return msg
	}
	return entry[LangEN]
}
