package saiql

import "fmt"

// TokenKind classifies a lexical token.
type TokenKind int

const (
	TokEOF      TokenKind = iota
	TokStar               // *
	TokLBracket           // [
	TokRBracket           // ]
	TokScope              // ::
	TokPipe               // |
	TokSink               // >>
	TokJoinSym            // =J, =L, =R, =F, =C
	TokPlus               // +
	TokMinus              // -
	TokComma              // ,
	TokDot                // .
	TokLParen             // (
	TokRParen             // )
	TokEq                 // =
	TokNeq                // != or <>
	TokLt                 // <
	TokLte                // <=
	TokGt                 // >
	TokGte                // >=
	TokIdent              // identifier
	TokString             // 'string' or "string"
	TokNumber             // 42, 3.14

	// Keywords shared by the condition grammar and the SQL surface.
	TokAnd
	TokOr
	TokNot
	TokTrue
	TokFalse
	TokSelect
	TokInsert
	TokUpdate
	TokDelete
	TokFrom
	TokWhere
	TokJoin
	TokInner
	TokLeft
	TokRight
	TokFull
	TokCross
	TokOuter
	TokOn
	TokGroup
	TokOrder
	TokBy
	TokLimit
	TokInto
	TokValues
	TokSet
	TokAsc
	TokDesc
	TokDistinct
)

// Token is a single lexical unit. Pos is the byte offset of the first
// character; Line and Col are 1-based.
type Token struct {
	Kind TokenKind
	Lit  string
	Pos  int
	Line int
	Col  int
}

func (t Token) String() string {
	if t.Lit != "" {
		return fmt.Sprintf("%s(%q)", t.Kind, t.Lit)
	}
	return t.Kind.String()
}

var kindNames = map[TokenKind]string{
	TokEOF:      "EOF",
	TokStar:     "*",
	TokLBracket: "[",
	TokRBracket: "]",
	TokScope:    "::",
	TokPipe:     "|",
	TokSink:     ">>",
	TokJoinSym:  "join symbol",
	TokPlus:     "+",
	TokMinus:    "-",
	TokComma:    ",",
	TokDot:      ".",
	TokLParen:   "(",
	TokRParen:   ")",
	TokEq:       "=",
	TokNeq:      "!=",
	TokLt:       "<",
	TokLte:      "<=",
	TokGt:       ">",
	TokGte:      ">=",
	TokIdent:    "identifier",
	TokString:   "string",
	TokNumber:   "number",
	TokAnd:      "AND",
	TokOr:       "OR",
	TokNot:      "NOT",
	TokTrue:     "TRUE",
	TokFalse:    "FALSE",
	TokSelect:   "SELECT",
	TokInsert:   "INSERT",
	TokUpdate:   "UPDATE",
	TokDelete:   "DELETE",
	TokFrom:     "FROM",
	TokWhere:    "WHERE",
	TokJoin:     "JOIN",
	TokInner:    "INNER",
	TokLeft:     "LEFT",
	TokRight:    "RIGHT",
	TokFull:     "FULL",
	TokCross:    "CROSS",
	TokOuter:    "OUTER",
	TokOn:       "ON",
	TokGroup:    "GROUP",
	TokOrder:    "ORDER",
	TokBy:       "BY",
	TokLimit:    "LIMIT",
	TokInto:     "INTO",
	TokValues:   "VALUES",
	TokSet:      "SET",
	TokAsc:      "ASC",
	TokDesc:     "DESC",
	TokDistinct: "DISTINCT",
}

func (k TokenKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Keywords are matched case-insensitively; the lookup key is lowercase.
var keywords = map[string]TokenKind{
	"and":      TokAnd,
	"or":       TokOr,
	"not":      TokNot,
	"true":     TokTrue,
	"false":    TokFalse,
	"select":   TokSelect,
	"insert":   TokInsert,
	"update":   TokUpdate,
	"delete":   TokDelete,
	"from":     TokFrom,
	"where":    TokWhere,
	"join":     TokJoin,
	"inner":    TokInner,
	"left":     TokLeft,
	"right":    TokRight,
	"full":     TokFull,
	"cross":    TokCross,
	"outer":    TokOuter,
	"on":       TokOn,
	"group":    TokGroup,
	"order":    TokOrder,
	"by":       TokBy,
	"limit":    TokLimit,
	"into":     TokInto,
	"values":   TokValues,
	"set":      TokSet,
	"asc":      TokAsc,
	"desc":     TokDesc,
	"distinct": TokDistinct,
}

// Operator tables: grammar symbols are data, not lexer branches. Adding
// an operator means adding a row here, not a case below.
var singleOps = map[rune]TokenKind{
	'*': TokStar,
	'[': TokLBracket,
	']': TokRBracket,
	'|': TokPipe,
	'+': TokPlus,
	'-': TokMinus,
	',': TokComma,
	'.': TokDot,
	'(': TokLParen,
	')': TokRParen,
}

var doubleOps = map[string]TokenKind{
	"::": TokScope,
	">>": TokSink,
	">=": TokGte,
	"<=": TokLte,
	"!=": TokNeq,
	"<>": TokNeq,
}

// joinSymbols maps the letter following '=' to a join symbol literal.
var joinSymbols = map[rune]string{
	'J': "=J",
	'L': "=L",
	'R': "=R",
	'F': "=F",
	'C': "=C",
}
