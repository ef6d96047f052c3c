package cassschema

import "errors"
import "fmt"
import "strings"
import "unicode"

type pToken struct {
	runes  []rune
	offset int
	ctx    interface{}
	err    error
}

func (t pToken) eof() bool { return len(t.runes) == 0 }

func (t pToken) fail(vals ...interface{}) pToken {
	newtok := t
	newtok.err = errors.New(fmt.Sprintf("%d: %s", t.offset, fmt.Sprint(vals...)))
	return newtok
}

func (t pToken) failf(format string, args ...interface{}) pToken {
	return t.fail(fmt.Sprintf(format, args...))
}

func (t pToken) advance(n int) pToken {
	newtok := t
	if n > len(t.runes) {
		n = len(t.runes)
	}
	newtok.runes = newtok.runes[n:]
	newtok.offset += n
	return newtok
}

func (t pToken) with(ctx interface{}) pToken {
	t.ctx = ctx
	return t
}

type _parser func(pToken) pToken

// compileStatement parses one statement into a command for the fake cluster. Parse failures are
// reported with the offset of the offending text, like a syntax error from Cassandra.
func compileStatement(text string) (fakeCommand, error) {
	t := pStatement(pToken{runes: []rune(text)})
	if t.err != nil {
		return nil, fakeError(errCodeSyntax, "line 1:%s in %q", t.err, text)
	}
	return t.ctx.(fakeCommand), nil
}

func gWord(words ...string) _parser {
	return func(t pToken) pToken {
		u := pTerm(t)
		if w, ok := u.ctx.(termWord); ok && u.err == nil {
			for _, word := range words {
				if string(w) == word {
					return u
				}
			}
		}
		return t.failf("expected %s", strings.ToUpper(strings.Join(words, " or ")))
	}
}

func gSymbol(sym string) _parser {
	return func(t pToken) pToken {
		if u := pTerm(t); u.err == nil && u.ctx == termSymbol(sym) {
			return u
		}
		return t.failf("expected '%s'", sym)
	}
}

func gSeq(ps ..._parser) _parser {
	return func(t pToken) pToken {
		for _, p := range ps {
			if t = p(t); t.err != nil {
				return t
			}
		}
		return t
	}
}

// gOptional applies p, reporting through ok whether it matched. On a mismatch t is returned as is.
func gOptional(p _parser, ok *bool) _parser {
	return func(t pToken) pToken {
		if u := p(t); u.err == nil {
			*ok = true
			return u
		}
		*ok = false
		return t.with(nil)
	}
}

func gList(p _parser, sep _parser) _parser {
	return func(t pToken) pToken {
		ctx := make([]interface{}, 0)
		if t = p(t); t.err != nil {
			return t
		}
		ctx = append(ctx, t.ctx)
		for !t.eof() {
			u := sep(t)
			if u.err != nil {
				break
			}
			if u = p(u); u.err != nil {
				return u
			}
			ctx = append(ctx, u.ctx)
			t = u
		}
		return t.with(ctx)
	}
}

var (
	pIfExists    = gSeq(gWord("if"), gWord("exists"))
	pIfNotExists = gSeq(gWord("if"), gWord("not"), gWord("exists"))
	pTermComma   = gSymbol(",")
)

func pStatement(t pToken) pToken {
	u := pTerm(t)
	word, ok := u.ctx.(termWord)
	if !ok || u.err != nil {
		return t.fail("expected command")
	}
	switch word {
	case "alter":
		t = pAlter(u)
	case "create":
		t = pCreate(u)
	case "drop":
		t = pDrop(u)
	case "use":
		t = pUse(u)
	case "insert", "update", "delete", "select", "truncate":
		t = pDML(u, string(word))
	default:
		return t.fail("invalid command: ", word)
	}
	if t.err != nil {
		return t
	}
	cmd := t.ctx
	var semi bool
	if t = gOptional(gSymbol(";"), &semi)(t); !t.eof() {
		return t.fail("trailing text after complete statement")
	}
	return t.with(cmd)
}

func pUse(t pToken) pToken {
	if t = pName(t); t.err != nil {
		return t
	}
	return t.with(&useCommand{keyspace: t.ctx.(qualifiedName).name})
}

func pCreate(t pToken) pToken {
	u := pTerm(t)
	kw, _ := u.ctx.(termWord)
	switch kw {
	case "keyspace":
		return pCreateKeyspace(u)
	case "table", "columnfamily":
		return pCreateTable(u)
	case "type":
		return pCreateType(u)
	case "index", "custom":
		return pCreateIndex(t)
	default:
		return t.fail("expected KEYSPACE, TABLE, TYPE or INDEX")
	}
}

func pCreateKeyspace(t pToken) pToken {
	var cmd createKeyspaceCommand
	var ifNotExists bool
	t = gOptional(pIfNotExists, &ifNotExists)(t)
	cmd.strict = !ifNotExists
	if t = pName(t); t.err != nil {
		return t
	}
	cmd.name = t.ctx.(qualifiedName).name
	if t = pWithOptions(t); t.err != nil {
		return t
	}
	if t.ctx != nil {
		cmd.options = t.ctx.(optionMap)
	}
	if _, ok := cmd.options["replication"]; !ok {
		return t.fail("missing mandatory replication strategy class")
	}
	return t.with(&cmd)
}

func pCreateTable(t pToken) pToken {
	var cmd createTableCommand
	var ifNotExists bool
	t = gOptional(pIfNotExists, &ifNotExists)(t)
	cmd.strict = !ifNotExists
	if t = pName(t); t.err != nil {
		return t
	}
	cmd.table = t.ctx.(qualifiedName)
	if t = gSymbol("(")(t); t.err != nil {
		return t
	}
	if t = gList(pColumnDef, pTermComma)(t); t.err != nil {
		return t
	}
	for _, ctx := range t.ctx.([]interface{}) {
		cdef := ctx.(*ctxColumnDef)
		if cdef.keys != nil {
			if cmd.key != nil {
				return t.fail("multiple primary key definitions")
			}
			cmd.key = cdef.keys
		}
		if cdef.name != "" {
			cmd.columns = append(cmd.columns, fakeColumn{cdef.name, cdef.typ})
		}
	}
	if cmd.key == nil {
		return t.fail("no PRIMARY KEY specified")
	}
	if t = gSymbol(")")(t); t.err != nil {
		return t
	}
	if t = pWithOptions(t); t.err != nil {
		return t
	}
	return t.with(&cmd)
}

type ctxColumnDef struct {
	name string
	typ  string
	keys []string
}

func pColumnDef(t pToken) pToken {
	var primary bool
	if u := gSeq(gWord("primary"), gWord("key"))(t); u.err == nil {
		if u = gSymbol("(")(u); u.err != nil {
			return u
		}
		if u = gList(pKeyPart, pTermComma)(u); u.err != nil {
			return u
		}
		keys := make([]string, 0)
		for _, ctx := range u.ctx.([]interface{}) {
			keys = append(keys, ctx.([]string)...)
		}
		if u = gSymbol(")")(u); u.err != nil {
			return u
		}
		return u.with(&ctxColumnDef{keys: keys})
	}
	if t = pIdentifier(t); t.err != nil {
		return t
	}
	def := &ctxColumnDef{name: t.ctx.(string)}
	if t = pDataType(t); t.err != nil {
		return t
	}
	def.typ = t.ctx.(string)
	var static bool
	t = gOptional(gWord("static"), &static)(t)
	if t = gOptional(gSeq(gWord("primary"), gWord("key")), &primary)(t); primary {
		def.keys = []string{def.name}
	}
	return t.with(def)
}

func pKeyPart(t pToken) pToken {
	if u := gSymbol("(")(t); u.err == nil {
		if u = gList(pIdentifier, pTermComma)(u); u.err != nil {
			return u
		}
		ctxs := u.ctx.([]interface{})
		keys := make([]string, len(ctxs))
		for i, ctx := range ctxs {
			keys[i] = ctx.(string)
		}
		if u = gSymbol(")")(u); u.err != nil {
			return u
		}
		return u.with(keys)
	}
	if t = pIdentifier(t); t.err != nil {
		return t
	}
	return t.with([]string{t.ctx.(string)})
}

func pCreateType(t pToken) pToken {
	var cmd createTypeCommand
	var ifNotExists bool
	t = gOptional(pIfNotExists, &ifNotExists)(t)
	cmd.strict = !ifNotExists
	if t = pName(t); t.err != nil {
		return t
	}
	cmd.typ = t.ctx.(qualifiedName)
	if t = gSymbol("(")(t); t.err != nil {
		return t
	}
	field := func(t pToken) pToken {
		if t = pIdentifier(t); t.err != nil {
			return t
		}
		name := t.ctx.(string)
		if t = pDataType(t); t.err != nil {
			return t
		}
		return t.with(fakeColumn{name, t.ctx.(string)})
	}
	if t = gList(field, pTermComma)(t); t.err != nil {
		return t
	}
	for _, ctx := range t.ctx.([]interface{}) {
		cmd.fields = append(cmd.fields, ctx.(fakeColumn))
	}
	if t = gSymbol(")")(t); t.err != nil {
		return t
	}
	return t.with(&cmd)
}

func pCreateIndex(t pToken) pToken {
	var cmd createIndexCommand
	var custom, ifNotExists bool
	t = gOptional(gWord("custom"), &custom)(t)
	if t = gWord("index")(t); t.err != nil {
		return t
	}
	t = gOptional(pIfNotExists, &ifNotExists)(t)
	cmd.strict = !ifNotExists
	if u := gWord("on")(t); u.err != nil {
		if t = pIdentifier(t); t.err != nil {
			return t
		}
		cmd.name = t.ctx.(string)
	}
	if t = gWord("on")(t); t.err != nil {
		return t
	}
	if t = pName(t); t.err != nil {
		return t
	}
	cmd.table = t.ctx.(qualifiedName)
	if t = gSymbol("(")(t); t.err != nil {
		return t
	}
	return pSkipAll(t).with(&cmd)
}

func pDrop(t pToken) pToken {
	var cmd dropCommand
	u := pTerm(t)
	kw, _ := u.ctx.(termWord)
	switch kw {
	case "keyspace", "table", "type", "index":
	case "columnfamily":
		kw = "table"
	default:
		return t.fail("expected KEYSPACE, TABLE, TYPE or INDEX")
	}
	cmd.kind = string(kw)
	var ifExists bool
	t = gOptional(pIfExists, &ifExists)(u)
	cmd.strict = !ifExists
	if t = pName(t); t.err != nil {
		return t
	}
	cmd.target = t.ctx.(qualifiedName)
	return t.with(&cmd)
}

func pAlter(t pToken) pToken {
	u := pTerm(t)
	kw, _ := u.ctx.(termWord)
	switch kw {
	case "keyspace":
		if u = pName(u); u.err != nil {
			return u
		}
		cmd := &alterKeyspaceCommand{name: u.ctx.(qualifiedName).name}
		if u = pWithOptions(u); u.err != nil {
			return u
		}
		if u.ctx == nil {
			return u.fail("expected WITH")
		}
		return u.with(cmd)
	case "table", "columnfamily":
	default:
		return t.fail("expected KEYSPACE or TABLE")
	}
	var cmd alterTableCommand
	if t = pName(u); t.err != nil {
		return t
	}
	cmd.table = t.ctx.(qualifiedName)
	u = pTerm(t)
	kw, _ = u.ctx.(termWord)
	switch kw {
	case "with":
		if t = pWithOptions(t); t.err != nil {
			return t
		}
	case "add", "alter":
		if t = pIdentifier(u); t.err != nil {
			return t
		}
		name := t.ctx.(string)
		if kw == "alter" {
			if t = gWord("type")(t); t.err != nil {
				return t
			}
		}
		if t = pDataType(t); t.err != nil {
			return t
		}
		if kw == "add" {
			cmd.add = &fakeColumn{name, t.ctx.(string)}
		} else {
			cmd.alter = &fakeColumn{name, t.ctx.(string)}
		}
	case "drop":
		if t = pIdentifier(u); t.err != nil {
			return t
		}
		cmd.drop = t.ctx.(string)
	default:
		return t.fail("expected ADD, ALTER, DROP, or WITH")
	}
	return t.with(&cmd)
}

// pDML recognizes just enough of a data statement to find the table it touches.
func pDML(t pToken, verb string) pToken {
	switch verb {
	case "insert":
		if t = gWord("into")(t); t.err != nil {
			return t
		}
	case "delete", "select":
		for {
			if t.eof() {
				return t.fail("expected FROM")
			}
			if u := gWord("from")(t); u.err == nil {
				t = u
				break
			}
			if t = pTerm(t); t.err != nil {
				return t
			}
		}
	case "truncate":
		var table bool
		t = gOptional(gWord("table", "columnfamily"), &table)(t)
	}
	if t = pName(t); t.err != nil {
		return t
	}
	cmd := &dmlCommand{verb: verb, table: t.ctx.(qualifiedName)}
	if verb != "truncate" && t.eof() {
		return t.fail("incomplete ", strings.ToUpper(verb), " statement")
	}
	return pSkipStatement(t).with(cmd)
}

type optionMap map[string]string

// pWithOptions parses an optional "WITH name = value [AND ...]" clause. Table options such as
// CLUSTERING ORDER BY are accepted without being interpreted.
func pWithOptions(t pToken) pToken {
	u := gWord("with")(t)
	if u.err != nil {
		return t.with(nil)
	}
	options := make(optionMap)
	for {
		v := pIdentifier(u)
		if v.err != nil {
			return v
		}
		key := v.ctx.(string)
		if w := gSymbol("=")(v); w.err == nil {
			if w = pValue(w); w.err != nil {
				return w
			}
			options[key] = w.ctx.(string)
			u = w
		} else if u = pSkipUntil(v, "and"); u.err != nil {
			return u
		}
		next := gWord("and")(u)
		if next.err != nil {
			break
		}
		u = next
	}
	return u.with(options)
}

// pValue parses an option value: a constant, identifier, or a map, set or list literal.
func pValue(t pToken) pToken {
	start := pSkipSpace(t)
	u := pTerm(start)
	if u.err != nil || start.eof() {
		return t.fail("expected value")
	}
	switch v := u.ctx.(type) {
	case termString:
		return u.with(string(v))
	case termWord:
		return u.with(string(v))
	case termNumber:
		return u.with(string(v))
	case termSymbol:
		var closing string
		switch v {
		case "{":
			closing = "}"
		case "[":
			closing = "]"
		default:
			return t.fail("expected value")
		}
		if w := gSymbol(closing)(u); w.err == nil {
			return w.with(strings.TrimSpace(string(start.runes[:w.offset-start.offset])))
		}
		entry := func(t pToken) pToken {
			if t = pValue(t); t.err != nil {
				return t
			}
			if u := gSymbol(":")(t); u.err == nil {
				return pValue(u)
			}
			return t
		}
		if u = gList(entry, pTermComma)(u); u.err != nil {
			return u
		}
		if u = gSymbol(closing)(u); u.err != nil {
			return u
		}
		return u.with(strings.TrimSpace(string(start.runes[:u.offset-start.offset])))
	}
	return t.fail("expected value")
}

// pDataType parses a CQL type, including parameterized types such as frozen<map<text, int>>.
func pDataType(t pToken) pToken {
	if t = pIdentifier(t); t.err != nil {
		return t.fail("expected column type")
	}
	typ := t.ctx.(string)
	if u := gSymbol("<")(t); u.err == nil {
		if u = gList(pDataType, pTermComma)(u); u.err != nil {
			return u
		}
		params := make([]string, 0)
		for _, ctx := range u.ctx.([]interface{}) {
			params = append(params, ctx.(string))
		}
		if u = gSymbol(">")(u); u.err != nil {
			return u
		}
		return u.with(fmt.Sprintf("%s<%s>", typ, strings.Join(params, ", ")))
	}
	return t.with(typ)
}

type qualifiedName struct {
	keyspace string
	name     string
}

func (n qualifiedName) String() string {
	if n.keyspace == "" {
		return n.name
	}
	return n.keyspace + "." + n.name
}

// pName parses a possibly keyspace-qualified name.
func pName(t pToken) pToken {
	if t = pIdentifier(t); t.err != nil {
		return t
	}
	name := qualifiedName{name: t.ctx.(string)}
	if u := gSymbol(".")(t); u.err == nil {
		if u = pIdentifier(u); u.err != nil {
			return u
		}
		name.keyspace, name.name = name.name, u.ctx.(string)
		t = u
	}
	return t.with(name)
}

func pIdentifier(t pToken) pToken {
	u := pTerm(t)
	if u.err == nil {
		switch id := u.ctx.(type) {
		case termWord:
			return u.with(string(id))
		case termQuoted:
			return u.with(string(id))
		}
	}
	return t.fail("expected identifier")
}

type termWord string
type termQuoted string
type termSymbol string
type termString string
type termNumber string

func pTerm(t pToken) pToken {
	t = pSkipSpace(t)
	if t.eof() {
		return t.fail("unexpected end of statement")
	}
	first := t.runes[0]
	switch {
	case first == '\'':
		return pSkipSpace(pStringLiteral(t, '\''))
	case first == '"':
		u := pStringLiteral(t, '"')
		if u.err != nil {
			return u
		}
		return pSkipSpace(u.with(termQuoted(u.ctx.(termString))))
	case unicode.IsDigit(first) || first == '-' && len(t.runes) > 1 && unicode.IsDigit(t.runes[1]):
		return pSkipSpace(pNumberLiteral(t))
	case first == '_' || unicode.IsLetter(first):
		r := pSkipAlphanumeric(t)
		word := strings.ToLower(string(t.runes[:r.offset-t.offset]))
		return pSkipSpace(r).with(termWord(word))
	default:
		return pSkipSpace(pSymbol(t))
	}
}

func pStringLiteral(t pToken, quote rune) pToken {
	var b strings.Builder
	for i := 1; i < len(t.runes); i++ {
		c := t.runes[i]
		if c != quote {
			b.WriteRune(c)
			continue
		}
		if i+1 < len(t.runes) && t.runes[i+1] == quote {
			b.WriteRune(quote)
			i++
			continue
		}
		return t.advance(i + 1).with(termString(b.String()))
	}
	return t.fail("unterminated string constant")
}

func pNumberLiteral(t pToken) pToken {
	i := 0
	if t.runes[0] == '-' {
		i++
	}
	for ; i < len(t.runes) && (unicode.IsDigit(t.runes[i]) || t.runes[i] == '.'); i++ {
	}
	return t.advance(i).with(termNumber(string(t.runes[:i])))
}

func pSkipSpace(t pToken) pToken {
	for i := 0; t.err == nil && i < len(t.runes); i++ {
		if !unicode.IsSpace(t.runes[i]) {
			return t.advance(i)
		}
	}
	return pSkipAll(t)
}

func pSkipAlphanumeric(t pToken) pToken {
	for i := 0; i < len(t.runes); i++ {
		next := t.runes[i]
		if next != '_' && !unicode.IsLetter(next) && !unicode.IsDigit(next) {
			return t.advance(i)
		}
	}
	return pSkipAll(t)
}

// pSkipUntil consumes terms up to, but not including, the given word or a statement terminator.
func pSkipUntil(t pToken, word string) pToken {
	for !t.eof() {
		if u := gWord(word)(t); u.err == nil {
			return t
		}
		if u := gSymbol(";")(t); u.err == nil {
			return t
		}
		if t = pTerm(t); t.err != nil {
			return t
		}
	}
	return t
}

// pSkipStatement consumes the rest of the statement, stopping before a terminating ';'.
func pSkipStatement(t pToken) pToken {
	for !t.eof() {
		if u := gSymbol(";")(t); u.err == nil {
			return t
		}
		if t = pTerm(t); t.err != nil {
			return t
		}
	}
	return t
}

func pSkipAll(t pToken) pToken {
	newtok := t
	newtok.offset += len(t.runes)
	newtok.runes = []rune{}
	return newtok
}

func pSymbol(t pToken) pToken {
	switch t.runes[0] {
	case '<', '>', '!':
		if len(t.runes) > 1 && t.runes[1] == '=' {
			return t.advance(2).with(termSymbol(string(t.runes[:2])))
		}
		return t.advance(1).with(termSymbol(string(t.runes[:1])))
	case '=', '{', '}', '[', ']', '(', ')', ':', ',', '*', '.', ';', '?', '+', '-':
		return t.advance(1).with(termSymbol(string(t.runes[:1])))
	default:
		return t.failf("don't know how to handle character '%c' (%#v)", t.runes[0], t.runes[0])
	}
}
