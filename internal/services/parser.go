package services

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// Intent is the action a keyword asks for.
type Intent string

const (
	IntentNone   Intent = ""
	IntentAdd    Intent = "add"
	IntentQuery  Intent = "query"
	IntentDelete Intent = "delete"
	IntentModify Intent = "modify"
	IntentRecipe Intent = "recipe"
	IntentCancel Intent = "cancel"
	IntentHelp   Intent = "help"

	// Intents that never come from a keyword; used for metrics and logs.
	IntentInput    Intent = "input"
	IntentFallback Intent = "fallback"
)

// CommandKind classifies a parsed message.
type CommandKind int

const (
	// CommandKeyword is a recognized keyword, optionally with arguments.
	CommandKeyword CommandKind = iota
	// CommandInput is free text answering the current flow's prompt.
	CommandInput
	// CommandUnknown is free text received while idle.
	CommandUnknown
)

// Command is the structured form of one inbound message.
type Command struct {
	Kind   CommandKind
	Intent Intent
	// Args holds the text after the keyword, or the whole normalized text
	// for input and unknown commands.
	Args string
}

var keywords = []struct {
	word   string
	intent Intent
}{
	{"add", IntentAdd}, {"新增", IntentAdd},
	{"query", IntentQuery}, {"list", IntentQuery}, {"查詢", IntentQuery},
	{"delete", IntentDelete}, {"刪除", IntentDelete},
	{"modify", IntentModify}, {"修改", IntentModify},
	{"recipe", IntentRecipe}, {"食譜", IntentRecipe},
	{"cancel", IntentCancel}, {"取消", IntentCancel},
	{"help", IntentHelp}, {"說明", IntentHelp},
}

// Normalize trims text and folds full-width ASCII (as typed on CJK
// keyboards) to its narrow form, so "１２，　２０３０" parses like "12, 2030".
func Normalize(text string) string {
	return strings.TrimSpace(width.Fold.String(text))
}

// ParseCommand maps raw text plus the sender's current state to a Command.
// While idle a keyword may carry arguments on the same line. Mid-flow only a
// bare keyword abandons the flow; anything longer is input for the current
// step, so "list of spices, 2030-01-01" adds an item instead of listing.
func ParseCommand(text string, state State) Command {
	norm := Normalize(text)
	idle := state == nil || state.Name() == StateIdle
	if intent, args, ok := matchKeyword(norm); ok && (idle || args == "") {
		return Command{Kind: CommandKeyword, Intent: intent, Args: args}
	}
	if idle {
		return Command{Kind: CommandUnknown, Intent: IntentNone, Args: norm}
	}
	return Command{Kind: CommandInput, Intent: IntentNone, Args: norm}
}

func matchKeyword(norm string) (Intent, string, bool) {
	head, rest := norm, ""
	if i := strings.IndexFunc(norm, unicode.IsSpace); i >= 0 {
		head, rest = norm[:i], strings.TrimSpace(norm[i:])
	}
	for _, k := range keywords {
		if strings.EqualFold(head, k.word) {
			return k.intent, rest, true
		}
	}
	// CJK keywords are often typed without a space before the arguments.
	for _, k := range keywords {
		if k.word[0] < utf8.RuneSelf {
			continue
		}
		if strings.HasPrefix(norm, k.word) {
			return k.intent, strings.TrimSpace(norm[len(k.word):]), true
		}
	}
	return IntentNone, "", false
}

// AddEntry is one "name, date" item of an add request. Date is empty when the
// user gave only a name.
type AddEntry struct {
	Raw  string
	Name string
	Date string
}

// ParseAddEntries splits an add request on ";" or new lines. Each entry is
// "name, date" or "name date"; a trailing token only counts as a date when it
// starts with a digit, so multi-word names without a date stay intact.
func ParseAddEntries(text string) []AddEntry {
	text = Normalize(text)
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == ';' || r == '\n' || r == '\r'
	})

	out := make([]AddEntry, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		e := AddEntry{Raw: p}
		p = strings.ReplaceAll(p, "、", ",")
		if i := strings.LastIndex(p, ","); i >= 0 {
			e.Name = strings.TrimSpace(p[:i])
			e.Date = strings.TrimSpace(p[i+1:])
		} else if f := strings.Fields(p); len(f) > 1 && unicode.IsDigit(rune(f[len(f)-1][0])) {
			e.Name = strings.Join(f[:len(f)-1], " ")
			e.Date = f[len(f)-1]
		} else {
			e.Name = p
		}
		out = append(out, e)
	}
	return out
}

// ParseIDs parses whitespace- or comma-separated positive integers. The first
// bad token fails the whole list. Duplicates are dropped, order is kept.
func ParseIDs(text string) ([]int, error) {
	tokens := strings.FieldsFunc(Normalize(text), func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == '、'
	})
	if len(tokens) == 0 {
		return nil, invalid("ids", text, ReasonEmpty)
	}

	seen := make(map[int]struct{}, len(tokens))
	ids := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		n, err := parseDigits(tok)
		if err != nil || n <= 0 {
			return nil, invalid("ids", tok, ReasonNotNumber)
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		ids = append(ids, n)
	}
	return ids, nil
}

// parseDigits accepts ASCII digits only, so "+2" is not an id.
func parseDigits(tok string) (int, error) {
	if tok == "" || strings.TrimLeft(tok, "0123456789") != "" {
		return 0, strconv.ErrSyntax
	}
	return strconv.Atoi(tok)
}

// ParseID parses exactly one positive integer.
func ParseID(text string) (int, error) {
	s := Normalize(text)
	n, err := parseDigits(s)
	if err != nil || n <= 0 {
		return 0, invalid("id", s, ReasonNotNumber)
	}
	return n, nil
}

// Field is an editable ingredient attribute.
type Field string

const (
	FieldName Field = "name"
	FieldDate Field = "date"
)

// ParseField recognizes a field name in English or Chinese, or its menu
// number.
func ParseField(text string) (Field, error) {
	s := strings.ToLower(Normalize(text))
	switch s {
	case "name", "名稱", "品名", "1":
		return FieldName, nil
	case "date", "expiration date", "日期", "有效日期", "2":
		return FieldDate, nil
	}
	return "", invalid("field", s, ReasonField)
}
