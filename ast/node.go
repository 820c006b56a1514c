// Package ast defines the parse tree produced by the parser and consumed
// by the code generator. A single tagged Node type stands in for every
// nonterminal, the way the original compiler's struct symbol carries a
// nonterminal tag, an optional token, an optional float payload, and an
// ordered list of child branches.
package ast

import "filagree/token"

// NodeKind identifies which grammar nonterminal a Node represents.
type NodeKind int

const (
	Statements NodeKind = iota
	Assignment
	IfThenElse
	Loop
	BinaryExpr
	UnaryExpr
	Integer
	Float
	String
	Variable
	Table
	Pair
	FunctionDecl
	FunctionCall
	Member
	Return
)

var kindNames = map[NodeKind]string{
	Statements:   "Statements",
	Assignment:   "Assignment",
	IfThenElse:   "IfThenElse",
	Loop:         "Loop",
	BinaryExpr:   "BinaryExpr",
	UnaryExpr:    "UnaryExpr",
	Integer:      "Integer",
	Float:        "Float",
	String:       "String",
	Variable:     "Variable",
	Table:        "Table",
	Pair:         "Pair",
	FunctionDecl: "FunctionDecl",
	FunctionCall: "FunctionCall",
	Member:       "Member",
	Return:       "Return",
}

// String renders the kind's name for debugging and the AST printer.
func (k NodeKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Node is a single parse-tree node carrying a nonterminal kind, the
// token that anchors it in the source (nil for purely structural nodes
// such as Statements), an optional float payload (used only by Float
// nodes, which combine two NUMBER tokens into a single value), an
// ordered list of children, and an is_lhs flag marking assignment or
// indexed-write targets.
type Node struct {
	Kind     NodeKind
	Tok      *token.Token
	Float    float64
	Children []*Node
	IsLHS    bool
}

// New returns a Node of the given kind anchored at tok, with children.
func New(kind NodeKind, tok *token.Token, children ...*Node) *Node {
	return &Node{Kind: kind, Tok: tok, Children: children}
}

// NewFloat returns a Float node carrying its computed value.
func NewFloat(tok *token.Token, value float64) *Node {
	return &Node{Kind: Float, Tok: tok, Float: value}
}

// MarkLHS sets IsLHS on n, used by the parser when a variable or member
// node is resolved as an assignment target.
func (n *Node) MarkLHS() *Node {
	n.IsLHS = true
	return n
}

// Name returns the identifier text carried by a Variable, String, or
// FunctionCall-callee node's token, and "" for a node with no token
// (such as Member).
func (n *Node) Name() string {
	if n.Tok == nil {
		return ""
	}
	return n.Tok.Lexeme
}
