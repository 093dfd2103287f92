package services

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Reply templates. The English text doubles as the catalog key.
const (
	msgHelp = "Commands:\n" +
		"add - add ingredients (name, YYYY-MM-DD)\n" +
		"query - list the inventory\n" +
		"delete - remove ingredients by id\n" +
		"modify - change a name or date\n" +
		"recipe - suggest a recipe\n" +
		"cancel - stop the current step"
	msgAskAdd            = "Send ingredients as \"name, YYYY-MM-DD\". Separate several with \";\" or new lines."
	msgAskAddDate        = "When does %s expire? Send a date (YYYY-MM-DD)."
	msgAdded             = "Added:"
	msgAddFailed         = "Failed:"
	msgAddFailedLine     = "%s: %s"
	msgNoneAdded         = "Nothing was added."
	msgInvalidDateRetry  = "Invalid date %s: %s. Send a date (YYYY-MM-DD)."
	msgEmpty             = "No ingredients recorded yet."
	msgListHeader        = "Current inventory:"
	msgListLine          = "%d. %s (expires: %s)"
	msgAskDelete         = "Send the ids to delete, separated by spaces."
	msgBadDeleteIDs      = "Invalid id %s. Nothing was deleted."
	msgDeleted           = "Deleted ids: %s"
	msgAskModify         = "Send the id of the ingredient to modify."
	msgBadModifyID       = "Invalid id %s. Send a number from the list."
	msgNotFound          = "Ingredient %d does not exist."
	msgAskField          = "Modify %d. %s: send \"name\" or \"date\"."
	msgBadField          = "Unknown field %s. Send \"name\" or \"date\"."
	msgAskNewName        = "Send the new name."
	msgAskNewDate        = "Send the new expiration date (YYYY-MM-DD)."
	msgEmptyName         = "The name must not be empty. Send the new name."
	msgUpdated           = "Ingredient %d updated."
	msgAskRecipe         = "Send the ingredients you have and I will suggest a recipe."
	msgAIError           = "AI error: %s"
	msgCancelled         = "Cancelled."
	msgStorageFailure    = "Something went wrong, please try again later."
	msgReminder          = "Reminder: %s expires on %s!"
	reasonTextDateFormat = "date format error, use YYYY-MM-DD"
	reasonTextPast       = "date is in the past"
	reasonTextFormat     = "format error, use name, date"
	reasonTextEmptyName  = "name is empty"
)

// RecipePrompt is the instruction sent to the generator in the recipe flow.
const RecipePrompt = "Please suggest a recipe that uses the following ingredients: "

var zhHant = map[string]string{
	msgHelp: "指令：\n" +
		"新增 - 新增食材（名稱, YYYY-MM-DD）\n" +
		"查詢 - 列出庫存\n" +
		"刪除 - 依編號刪除食材\n" +
		"修改 - 修改名稱或日期\n" +
		"食譜 - 推薦食譜\n" +
		"取消 - 結束目前步驟",
	msgAskAdd:            "請輸入食材與有效日期，格式：名稱, YYYY-MM-DD。多筆請用「;」或換行分隔。",
	msgAskAddDate:        "請輸入 %s 的有效日期（YYYY-MM-DD）。",
	msgAdded:             "已新增：",
	msgAddFailed:         "失敗：",
	msgAddFailedLine:     "%s：%s",
	msgNoneAdded:         "沒有新增任何食材。",
	msgInvalidDateRetry:  "日期 %s 無效：%s。請重新輸入（YYYY-MM-DD）。",
	msgEmpty:             "目前沒有任何食材紀錄。",
	msgListHeader:        "目前庫存：",
	msgListLine:          "%d. %s (有效日期: %s)",
	msgAskDelete:         "請輸入要刪除的編號，以空白分隔。",
	msgBadDeleteIDs:      "編號 %s 格式錯誤，未刪除任何項目。",
	msgDeleted:           "已刪除編號：%s",
	msgAskModify:         "請輸入要修改的食材編號。",
	msgBadModifyID:       "編號 %s 格式錯誤，請輸入清單中的數字。",
	msgNotFound:          "找不到編號 %d 的食材。",
	msgAskField:          "修改 %d. %s：請輸入「名稱」或「日期」。",
	msgBadField:          "無法辨識的欄位 %s，請輸入「名稱」或「日期」。",
	msgAskNewName:        "請輸入新的名稱。",
	msgAskNewDate:        "請輸入新的有效日期（YYYY-MM-DD）。",
	msgEmptyName:         "名稱不可為空白，請輸入新的名稱。",
	msgUpdated:           "編號 %d 已更新。",
	msgAskRecipe:         "請輸入現有的食材，我會推薦食譜。",
	msgAIError:           "AI 發生錯誤：%s",
	msgCancelled:         "已取消。",
	msgStorageFailure:    "系統發生錯誤，請稍後再試。",
	msgReminder:          "提醒：%s 即將於 %s 過期！",
	reasonTextDateFormat: "日期格式錯誤，請使用 YYYY-MM-DD",
	reasonTextPast:       "日期已過期",
	reasonTextFormat:     "格式錯誤，請使用 名稱, 日期",
	reasonTextEmptyName:  "名稱為空白",
}

var (
	supportedLocales = []language.Tag{language.English, language.TraditionalChinese}
	localeMatcher    = language.NewMatcher(supportedLocales)
	replyCatalog     = buildCatalog()
)

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, msg := range zhHant {
		if err := b.SetString(language.TraditionalChinese, key, msg); err != nil {
			panic(err)
		}
	}
	return b
}

// NewPrinter returns a reply printer for the best supported match of locale
// ("en", "zh-TW", "zh-Hant", ...). Unknown locales fall back to English.
func NewPrinter(locale string) *message.Printer {
	tag := language.English
	if t, err := language.Parse(locale); err == nil {
		_, idx, conf := localeMatcher.Match(t)
		if conf != language.No {
			tag = supportedLocales[idx]
		}
	}
	return message.NewPrinter(tag, message.Catalog(replyCatalog))
}

// reasonText renders a ValidationError reason for the user.
func reasonText(p *message.Printer, reason string) string {
	switch reason {
	case ReasonPastDate:
		return p.Sprintf(reasonTextPast)
	case ReasonEmpty:
		return p.Sprintf(reasonTextEmptyName)
	case ReasonFormat:
		return p.Sprintf(reasonTextFormat)
	default:
		return p.Sprintf(reasonTextDateFormat)
	}
}
