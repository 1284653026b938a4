package datalog

import (
	"github.com/beyondcivic/goflowdl/pkg/errs"
)

// Parser builds a Program (declarations + rules) and parses fact vectors
// from a token stream, per the grammar in spec §4.2:
//
//	program   := (decl | rule)*
//	decl      := '.decl' IDENT '(' params ')' ('.input' | '.output') ';'
//	rule      := '.rule' atom ':-' NUMBER atom (',' atom)* ';'
//	atom      := IDENT '(' params ')'
//	params    := IDENT (',' IDENT)*
//	fact-vec  := NUMBER fact*
//	fact      := IDENT '(' params ')' (';' | ',')
type Parser struct {
	toks []Token
	pos  int
}

// NewParser returns a Parser over an already-lexed token stream.
func NewParser(toks []Token) *Parser {
	return &Parser{toks: toks}
}

// ParseProgram lexes and parses src into a validated Program.
func ParseProgram(src string) (*Program, error) {
	toks, err := Lex(src)
	if err != nil {
		return nil, err
	}
	p := NewParser(toks)
	prog, err := p.Program()
	if err != nil {
		return nil, err
	}
	if err := prog.Validate(); err != nil {
		return nil, err
	}
	return prog, nil
}

// ParseFactVector lexes and parses src as a fact-vec: a leading count
// followed by that many facts.
func ParseFactVector(src string) ([]Fact, error) {
	toks, err := Lex(src)
	if err != nil {
		return nil, err
	}
	p := NewParser(toks)
	return p.FactVector()
}

func (p *Parser) cur() Token {
	return p.toks[p.pos]
}

func (p *Parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(k Kind) (Token, error) {
	t := p.cur()
	if t.Kind != k {
		return Token{}, &errs.ParseError{
			Pos:      errs.Pos{Line: t.Line, Col: t.Col},
			Expected: k.String(),
			Found:    t.String(),
		}
	}
	return p.advance(), nil
}

// Program parses the whole '(decl | rule)*' grammar.
func (p *Parser) Program() (*Program, error) {
	prog := &Program{}
	for p.cur().Kind != EOF {
		switch p.cur().Kind {
		case DECL:
			d, err := p.decl()
			if err != nil {
				return nil, err
			}
			prog.Decls = append(prog.Decls, d)
		case RULE:
			r, err := p.rule()
			if err != nil {
				return nil, err
			}
			prog.Rules = append(prog.Rules, r)
		default:
			t := p.cur()
			return nil, &errs.ParseError{
				Pos:      errs.Pos{Line: t.Line, Col: t.Col},
				Expected: ".decl or .rule",
				Found:    t.String(),
			}
		}
	}
	prog.Index()
	return prog, nil
}

// decl parses '.decl' IDENT '(' params ')' ('.input' | '.output') ';'.
func (p *Parser) decl() (Decl, error) {
	if _, err := p.expect(DECL); err != nil {
		return Decl{}, err
	}
	name, err := p.expect(IDENT)
	if err != nil {
		return Decl{}, err
	}
	if _, err := p.expect(LPAREN); err != nil {
		return Decl{}, err
	}
	params, err := p.params()
	if err != nil {
		return Decl{}, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return Decl{}, err
	}

	var kind DeclKind
	switch p.cur().Kind {
	case INPUT:
		p.advance()
		kind = Input
	case OUTPUT:
		p.advance()
		kind = Output
	default:
		t := p.cur()
		return Decl{}, &errs.ParseError{
			Pos:      errs.Pos{Line: t.Line, Col: t.Col},
			Expected: ".input or .output",
			Found:    t.String(),
		}
	}
	if _, err := p.expect(SEMI); err != nil {
		return Decl{}, err
	}
	return Decl{Name: name.Text, Params: params, Kind: kind}, nil
}

// rule parses '.rule' atom ':-' NUMBER atom (',' atom)* ';'. The NUMBER is
// the explicit body arity: the parser consumes exactly that many atoms.
func (p *Parser) rule() (Rule, error) {
	if _, err := p.expect(RULE); err != nil {
		return Rule{}, err
	}
	head, err := p.atom()
	if err != nil {
		return Rule{}, err
	}
	if _, err := p.expect(ARROW); err != nil {
		return Rule{}, err
	}
	countTok, err := p.expect(NUMBER)
	if err != nil {
		return Rule{}, err
	}
	count := countTok.Number

	body := make([]Atom, 0, count)
	for i := 0; i < count; i++ {
		if i > 0 {
			if _, err := p.expect(COMMA); err != nil {
				return Rule{}, err
			}
		}
		a, err := p.atom()
		if err != nil {
			return Rule{}, err
		}
		body = append(body, a)
	}
	if _, err := p.expect(SEMI); err != nil {
		return Rule{}, err
	}
	return Rule{Head: head, Body: body}, nil
}

// atom parses IDENT '(' params ')'. The Span records the relation name
// token's position, per SPEC_FULL.md §3's supplemental Span type.
func (p *Parser) atom() (Atom, error) {
	name, err := p.expect(IDENT)
	if err != nil {
		return Atom{}, err
	}
	if _, err := p.expect(LPAREN); err != nil {
		return Atom{}, err
	}
	params, err := p.params()
	if err != nil {
		return Atom{}, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return Atom{}, err
	}
	return Atom{Name: name.Text, Args: params, Span: Span{Line: name.Line, Col: name.Col}}, nil
}

// params parses IDENT (',' IDENT)*.
func (p *Parser) params() ([]string, error) {
	var out []string
	if p.cur().Kind == RPAREN {
		return out, nil
	}
	first, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	out = append(out, first.Text)
	for p.cur().Kind == COMMA {
		p.advance()
		t, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		out = append(out, t.Text)
	}
	return out, nil
}

// FactVector parses 'N fact*' where fact is 'IDENT ( params ) (; | ,)'. A
// trailing ',' between facts is tolerated for historical reasons, per
// spec §6.
func (p *Parser) FactVector() ([]Fact, error) {
	countTok, err := p.expect(NUMBER)
	if err != nil {
		return nil, err
	}

	facts := make([]Fact, 0, countTok.Number)
	for i := 0; i < countTok.Number; i++ {
		a, err := p.atom()
		if err != nil {
			return nil, err
		}
		facts = append(facts, Fact{Name: a.Name, Args: a.Args, Span: a.Span})
		if p.cur().Kind == SEMI || p.cur().Kind == COMMA {
			p.advance()
		} else if i < countTok.Number-1 {
			t := p.cur()
			return nil, &errs.ParseError{
				Pos:      errs.Pos{Line: t.Line, Col: t.Col},
				Expected: "';' or ','",
				Found:    t.String(),
			}
		}
	}
	return facts, nil
}
