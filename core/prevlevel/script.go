package prevlevel

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/LevelSheet/core/catalog"
	"github.com/FocuswithJustin/LevelSheet/core/errors"
)

// The level script is a JavaScript data file published for the prior
// version. It declares one array literal:
//
//	var in_lv = [{dx:1, v:..., lv:[3.0, 6.0, 9.0, 12.8, 0, 0], n:"title"}, ...];
//
// Only that literal is parsed; the code around it is ignored.

//nolint:govet // participle grammar tags are not standard struct tags
type jsArray struct {
	Items []*jsValue `"[" ( @@ ","? )* "]"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type jsObject struct {
	Props []*jsProp `"{" ( @@ ","? )* "}"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type jsProp struct {
	Key   string   `( @Ident | @String )`
	Value *jsValue `":" @@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type jsValue struct {
	Object *jsObject `  @@`
	Array  *jsArray  `| @@`
	Number *float64  `| @Number`
	String *string   `| @String`
	Ident  *string   `| @Ident`
}

var jsLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*|/\*(?s:.*?)\*/`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`},
	{Name: "Number", Pattern: `[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`},
	{Name: "Ident", Pattern: `[A-Za-z_$][A-Za-z0-9_$]*`},
	{Name: "Punct", Pattern: `[{}\[\]:,;=()]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var jsParser = participle.MustBuild[jsArray](
	participle.Lexer(jsLexer),
	participle.Elide("Comment", "Whitespace"),
)

// levelsVarPattern finds the start of the in_lv array literal.
var levelsVarPattern = regexp.MustCompile(`\bin_lv\s*=\s*\[`)

// scriptSlots maps lv array positions to difficulties. Positions 4 and 5
// both hold Re:Master constants; the later one wins.
var scriptSlots = []catalog.Difficulty{
	catalog.Basic, catalog.Advanced, catalog.Expert, catalog.Master, catalog.Remaster, catalog.Remaster,
}

// ParseLevelsScript decodes the in_lv array of a level script into an
// index. Constants are taken as absolute values (negative marks an
// unconfirmed constant); zero or non-numeric slots are skipped.
func ParseLevelsScript(src string, n catalog.TitleNormalizer) (*Index, error) {
	loc := levelsVarPattern.FindStringIndex(src)
	if loc == nil {
		return nil, errors.NewSourceFormat("level script", "", "in_lv", "array declaration not found")
	}
	literal, ok := arrayLiteral(src, loc[1]-1)
	if !ok {
		return nil, errors.NewSourceFormat("level script", "", "in_lv", "unterminated array literal")
	}
	arr, err := jsParser.ParseString("levels.js", literal)
	if err != nil {
		return nil, &errors.SourceFormatError{Source: "level script", Message: "invalid array literal", Err: err}
	}

	ix := NewIndex()
	for i, item := range arr.Items {
		if item.Object == nil {
			return nil, errors.NewSourceFormat("level script", "", "", fmt.Sprintf("entry %d is not an object", i))
		}
		if err := addScriptEntry(ix, i, item.Object, n); err != nil {
			return nil, err
		}
	}
	return ix, nil
}

func addScriptEntry(ix *Index, pos int, obj *jsObject, n catalog.TitleNormalizer) error {
	var (
		title    *string
		dx       float64
		levels   *jsArray
		recordID = fmt.Sprintf("entry %d", pos)
	)
	for _, p := range obj.Props {
		key := p.Key
		if strings.HasPrefix(key, `"`) || strings.HasPrefix(key, `'`) {
			k, err := unquoteJS(key)
			if err != nil {
				return &errors.SourceFormatError{Source: "level script", Record: recordID, Field: "key", Message: err.Error(), Err: err}
			}
			key = k
		}
		switch key {
		case "n":
			if p.Value.String == nil {
				return errors.NewSourceFormat("level script", recordID, "n", "title is not a string")
			}
			s, err := unquoteJS(*p.Value.String)
			if err != nil {
				return &errors.SourceFormatError{Source: "level script", Record: recordID, Field: "n", Message: err.Error(), Err: err}
			}
			title = &s
		case "dx":
			if p.Value.Number != nil {
				dx = *p.Value.Number
			}
		case "lv":
			if p.Value.Array == nil {
				return errors.NewSourceFormat("level script", recordID, "lv", "levels are not an array")
			}
			levels = p.Value.Array
		}
	}
	if title == nil {
		return errors.NewSourceFormat("level script", recordID, "n", "missing title")
	}
	if levels == nil {
		return errors.NewSourceFormat("level script", *title, "lv", "missing levels")
	}

	name := *title
	if n != nil {
		name = n.Title(name)
	}
	ct := catalog.Std
	if dx == 1 {
		ct = catalog.Dx
	}
	for i, v := range levels.Items {
		if i >= len(scriptSlots) {
			break
		}
		if v.Number == nil {
			continue
		}
		c := math.Abs(*v.Number)
		if c == 0 || math.IsNaN(c) {
			continue
		}
		ix.Put(catalog.Key{Title: name, ChartType: ct, Difficulty: scriptSlots[i]}, RatingFromConstant(c))
	}
	return nil
}

// arrayLiteral returns the bracket-balanced literal starting at src[start],
// which must be '['. Brackets inside strings and comments are ignored.
func arrayLiteral(src string, start int) (string, bool) {
	depth := 0
	for i := start; i < len(src); i++ {
		switch c := src[i]; c {
		case '"', '\'':
			for i++; i < len(src) && src[i] != c; i++ {
				if src[i] == '\\' {
					i++
				}
			}
		case '/':
			if i+1 < len(src) && src[i+1] == '/' {
				for i < len(src) && src[i] != '\n' {
					i++
				}
			} else if i+1 < len(src) && src[i+1] == '*' {
				end := strings.Index(src[i+2:], "*/")
				if end < 0 {
					return "", false
				}
				i += end + 3
			}
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return src[start : i+1], true
			}
		}
	}
	return "", false
}

// unquoteJS decodes a single- or double-quoted JavaScript string literal.
func unquoteJS(s string) (string, error) {
	if len(s) < 2 {
		return "", fmt.Errorf("invalid string literal %s", s)
	}
	if s[0] == '\'' {
		inner := s[1 : len(s)-1]
		inner = strings.ReplaceAll(inner, `\'`, `'`)
		inner = strings.ReplaceAll(inner, `"`, `\"`)
		s = `"` + inner + `"`
	}
	s = strings.ReplaceAll(s, `\/`, `/`)
	out, err := strconv.Unquote(s)
	if err != nil {
		return "", fmt.Errorf("invalid string literal %s: %w", s, err)
	}
	return out, nil
}
