package ast

import (
	"testing"

	"filagree/token"
)

func ident(name string) *token.Token {
	tok := token.CreateLiteralToken(token.IDENTIFIER, name, name, 1, 0)
	return &tok
}

func TestAssignmentMarksFinalLHSNode(t *testing.T) {
	target := New(Variable, ident("x")).MarkLHS()
	rhs := NewFloat(nil, 0)
	assign := New(Assignment, nil, target, rhs)

	if len(assign.Children) != 2 {
		t.Fatalf("expected assignment to carry 2 children, got %d", len(assign.Children))
	}
	lhs := assign.Children[0]
	if !lhs.IsLHS {
		t.Fatal("expected LHS subtree's final node to be marked is_lhs")
	}
}

func TestMemberLHSPropagation(t *testing.T) {
	base := New(Variable, ident("x"))
	index := New(Integer, nil)
	member := New(Member, nil, index, base).MarkLHS()

	if !member.IsLHS {
		t.Fatal("expected member node assigned to be marked is_lhs")
	}
	if len(member.Children) != 2 {
		t.Fatalf("member node schema expects 2 children (index, indexable), got %d", len(member.Children))
	}
}

func TestBinaryExprChildCount(t *testing.T) {
	left := New(Integer, nil)
	right := New(Integer, nil)
	bin := New(BinaryExpr, ident("+"), left, right)
	if len(bin.Children) != 2 {
		t.Fatalf("binary expression schema expects 2 children, got %d", len(bin.Children))
	}
}

func TestUnaryExprChildCount(t *testing.T) {
	operand := New(Integer, nil)
	un := New(UnaryExpr, ident("-"), operand)
	if len(un.Children) != 1 {
		t.Fatalf("unary expression schema expects 1 child, got %d", len(un.Children))
	}
}

func TestFloatNodeCarriesComputedValue(t *testing.T) {
	f := NewFloat(ident("1.5"), 1.5)
	if f.Kind != Float {
		t.Fatalf("expected Float kind, got %v", f.Kind)
	}
	if f.Float != 1.5 {
		t.Fatalf("expected float value 1.5, got %v", f.Float)
	}
}

func TestKindStringKnownAndUnknown(t *testing.T) {
	if Statements.String() != "Statements" {
		t.Fatalf("unexpected kind name: %s", Statements.String())
	}
	if NodeKind(999).String() != "Unknown" {
		t.Fatalf("expected Unknown for unmapped kind, got %s", NodeKind(999).String())
	}
}
