package i18n

// Translator retrieves localized messages for error codes. data provides
// optional metadata to embed in the message (for example, "schema" or
// "pointer").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	switch t.lang {
	case "ja":
		switch code {
		case "malformed_input":
			return "入力を解析できません"
		case "missing_base_schema":
			return "ベーススキーマが指定されていません"
		case "schema_invalid":
			return "スキーマ自体が不正です"
		case "schema_not_found":
			return "スキーマ文書が見つかりません"
		case "unresolvable":
			return "フラグメントを解決できません"
		case "validation":
			return "スキーマに適合していません"
		case "source_unavailable":
			return "スキーマの取得に失敗しました"
		case "malformed_marker":
			return "拡張スキーマ指定が不正です"
		case "format_error":
			return "ロケーションファイルの形式が不正です"
		case "config_error":
			return "設定が不正です"
		}
	default: // "en"
		switch code {
		case "malformed_input":
			return "input is not parseable"
		case "missing_base_schema":
			return "base schema not specified"
		case "schema_invalid":
			return "schema document is itself invalid"
		case "schema_not_found":
			return "schema document not found"
		case "unresolvable":
			return "unable to resolve fragment"
		case "validation":
			return "instance does not conform to schema"
		case "source_unavailable":
			return "unable to load schema source"
		case "malformed_marker":
			return "malformed extension-schema declaration"
		case "format_error":
			return "location file format error"
		case "config_error":
			return "configuration error"
		}
	}
	return code
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// Message renders a code through the current Translator.
func Message(code string, data map[string]string) string {
	return currentTranslator.Message(code, data)
}
