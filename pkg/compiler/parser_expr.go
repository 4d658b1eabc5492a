package compiler

// Expression precedence, lowest first:
//
//	or         = and ("or" and)*
//	and        = equality ("and" equality)*
//	equality   = relational (("==" | "<>" | "!=") relational)*
//	relational = additive (("<" | "<=" | ">" | ">=") additive)*
//	additive   = mul (("+" | "-") mul)*
//	mul        = container (("*" | "/" | "mod") container)*
//	container  = "[" [expr ("," expr)*] "]" | "{" [expr ":" expr ("," ...)*] "}" | cast
//	cast       = unary suffix*
//	unary      = ("not" | "-") unary | group
//	group      = "(" expr ")" | atomic
//	atomic     = literal | call | ID ("[" expr "]" [suffix])*
//
// Binary operators must sit on the same line as their left operand so that a
// line break always ends an expression.

func (p *Parser) parseExpression() (Expression, error) {
	return p.parseOr()
}

// binaryLevel parses a left-associative chain of the operators in ops, with
// next parsing the operands and check validating each pair.
func (p *Parser) binaryLevel(next func() (Expression, error), check func(op Token, l, r Expression) (Type, error), ops ...TokenType) (Expression, error) {
	left, err := next()
	if err != nil {
		return Expression{}, err
	}
	for {
		op := p.stream.Raw()
		if !containsType(ops, op.Type) {
			return left, nil
		}
		p.stream.Next()
		right, err := next()
		if err != nil {
			return Expression{}, err
		}
		if left.Type == Void || right.Type == Void {
			return Expression{}, errorAt(op, "Expression has no value")
		}
		result, err := check(op, left, right)
		if err != nil {
			return Expression{}, err
		}
		code := p.gen.Binary(op.Type, BalanceTypes(left.Type, right.Type), left, right)
		left = Expression{Type: result, Code: code}
	}
}

func containsType(list []TokenType, tt TokenType) bool {
	for _, t := range list {
		if t == tt {
			return true
		}
	}
	return false
}

func (p *Parser) parseOr() (Expression, error) {
	return p.binaryLevel(p.parseAnd, checkBoolean, OR)
}

func (p *Parser) parseAnd() (Expression, error) {
	return p.binaryLevel(p.parseEquality, checkBoolean, AND)
}

func (p *Parser) parseEquality() (Expression, error) {
	return p.binaryLevel(p.parseRelational, func(op Token, l, r Expression) (Type, error) {
		if !AreCompatible(l.Type, r.Type) {
			return Void, errorAt(op, "Incompatible types")
		}
		return Int, nil
	}, EQUAL, NOT_EQUAL)
}

func (p *Parser) parseRelational() (Expression, error) {
	return p.binaryLevel(p.parseAdditive, func(op Token, l, r Expression) (Type, error) {
		if !isScalar(l.Type) || !isScalar(r.Type) {
			return Void, errorAt(op, "Relational operators can only be applied to numeric and string types")
		}
		if !AreCompatible(l.Type, r.Type) {
			return Void, errorAt(op, "Incompatible types")
		}
		return Int, nil
	}, LESS, LESS_EQ, GREATER, GREATER_EQ)
}

func (p *Parser) parseAdditive() (Expression, error) {
	return p.binaryLevel(p.parseMultiplicative, func(op Token, l, r Expression) (Type, error) {
		if op.Type == PLUS {
			if !isScalar(l.Type) || !isScalar(r.Type) {
				return Void, errorAt(op, "Addition can only be applied to numeric and string types")
			}
		} else if !l.Type.IsNumeric() || !r.Type.IsNumeric() {
			return Void, errorAt(op, "Subtraction can only be applied to numeric types")
		}
		if !AreCompatible(l.Type, r.Type) {
			return Void, errorAt(op, "Incompatible types")
		}
		return BalanceTypes(l.Type, r.Type), nil
	}, PLUS, MINUS)
}

func (p *Parser) parseMultiplicative() (Expression, error) {
	return p.binaryLevel(p.parseContainer, func(op Token, l, r Expression) (Type, error) {
		if !l.Type.IsNumeric() || !r.Type.IsNumeric() {
			return Void, errorAt(op, "Multiplication and division can only be applied to numeric types")
		}
		return BalanceTypes(l.Type, r.Type), nil
	}, MUL, DIV, MOD)
}

func checkBoolean(op Token, l, r Expression) (Type, error) {
	if !AreCompatible(l.Type, r.Type) {
		return Void, errorAt(op, "Boolean operands must be of compatible types")
	}
	return Int, nil
}

func isScalar(t Type) bool { return t.IsNumeric() || t == String }

func (p *Parser) parseContainer() (Expression, error) {
	switch p.stream.Peek(0).Type {
	case LBRACKET:
		return p.parseList()
	case LBRACE:
		return p.parseDict()
	}
	return p.parseCast()
}

func (p *Parser) parseList() (Expression, error) {
	p.stream.Next() // [
	var values []Expression
	if p.stream.Peek(0).Type != RBRACKET {
		for {
			tok := p.stream.Peek(0)
			exp, err := p.parseExpression()
			if err != nil {
				return Expression{}, err
			}
			if err := requireValue(exp, tok); err != nil {
				return Expression{}, err
			}
			values = append(values, exp)
			if p.stream.Peek(0).Type != COMMA {
				break
			}
			p.stream.Next()
		}
	}
	if _, err := p.expect(RBRACKET, "Expected ']'"); err != nil {
		return Expression{}, err
	}
	return Expression{Type: Table, Code: p.gen.List(values)}, nil
}

func (p *Parser) parseDict() (Expression, error) {
	p.stream.Next() // {
	var keys, values []Expression
	if p.stream.Peek(0).Type != RBRACE {
		for {
			keyTok := p.stream.Peek(0)
			k, err := p.parseExpression()
			if err != nil {
				return Expression{}, err
			}
			if k.Type != String {
				return Expression{}, errorAt(keyTok, "Expected string expression as key.")
			}
			if _, err := p.expect(COLON, "Expected ':'"); err != nil {
				return Expression{}, err
			}
			valTok := p.stream.Peek(0)
			v, err := p.parseExpression()
			if err != nil {
				return Expression{}, err
			}
			if err := requireValue(v, valTok); err != nil {
				return Expression{}, err
			}
			keys = append(keys, k)
			values = append(values, v)
			if p.stream.Peek(0).Type != COMMA {
				break
			}
			p.stream.Next()
		}
	}
	if _, err := p.expect(RBRACE, "Expected '}'"); err != nil {
		return Expression{}, err
	}
	return Expression{Type: Table, Code: p.gen.Dict(keys, values)}, nil
}

// parseCast applies any type suffixes that follow an operand on the same
// line. Only numeric and string values convert.
func (p *Parser) parseCast() (Expression, error) {
	exp, err := p.parseUnary()
	if err != nil {
		return Expression{}, err
	}
	for p.stream.Raw().Type.IsSuffix() {
		tok := p.stream.Next()
		to, _ := TypeFromSuffix(tok.Type)
		if !isScalar(exp.Type) {
			return Expression{}, errorAt(tok, "Can only cast numeric and string types")
		}
		if !isScalar(to) {
			return Expression{}, errorAt(tok, "Can only cast to numeric and string types")
		}
		if to != exp.Type {
			exp = Expression{Type: to, Code: p.gen.Cast(to, exp)}
		}
	}
	return exp, nil
}

func (p *Parser) parseUnary() (Expression, error) {
	tok := p.stream.Peek(0)
	switch tok.Type {
	case NOT:
		p.stream.Next()
		exp, err := p.parseUnary()
		if err != nil {
			return Expression{}, err
		}
		if err := requireValue(exp, tok); err != nil {
			return Expression{}, err
		}
		return Expression{Type: Int, Code: p.gen.Unary(NOT, exp)}, nil
	case MINUS:
		p.stream.Next()
		exp, err := p.parseUnary()
		if err != nil {
			return Expression{}, err
		}
		if !exp.Type.IsNumeric() {
			return Expression{}, errorAt(tok, "Unary '-' operator must be applied to numeric types")
		}
		return Expression{Type: exp.Type, Code: p.gen.Unary(MINUS, exp)}, nil
	}
	return p.parseGroup()
}

func (p *Parser) parseGroup() (Expression, error) {
	if p.stream.Peek(0).Type != LPAREN {
		return p.parseAtomic()
	}
	p.stream.Next()
	exp, err := p.parseExpression()
	if err != nil {
		return Expression{}, err
	}
	if _, err := p.expect(RPAREN, "Expected ')'"); err != nil {
		return Expression{}, err
	}
	return Expression{Type: exp.Type, Code: p.gen.Group(exp)}, nil
}

func (p *Parser) parseAtomic() (Expression, error) {
	tok := p.stream.Peek(0)
	switch tok.Type {
	case INT_LIT, TRUE_LIT, FALSE_LIT:
		p.stream.Next()
		return Expression{Type: Int, Code: p.gen.Literal(tok)}, nil
	case FLOAT_LIT:
		p.stream.Next()
		return Expression{Type: Float, Code: p.gen.Literal(tok)}, nil
	case STRING_LIT:
		p.stream.Next()
		return Expression{Type: String, Code: p.gen.Literal(tok)}, nil
	case NULL_LIT:
		p.stream.Next()
		return Expression{Type: Ref, Code: p.gen.Literal(tok)}, nil
	case IDENTIFIER:
		if fn := p.findFunction(tok.Lexeme); fn != nil {
			return p.parseCall(fn)
		}
		if v, ok := p.defs.FindVar(tok.Lexeme); ok {
			p.stream.Next()
			return p.parseVarAccess(v, tok)
		}
		if p.stream.Peek(1).Type == LPAREN {
			return Expression{}, errorAt(tok, "Unknown function: %s", tok.Lexeme)
		}
		return Expression{}, errorAt(tok, "Variable has not been initialized: %s", tok.Lexeme)
	case EOF:
		return Expression{}, errorAt(tok, "Unexpected end of input")
	}
	return Expression{}, errorAt(tok, "Unexpected element '%s'", tok.Lexeme)
}

// parseVarAccess parses the indexing chain after a variable. The final
// accessor must carry a type suffix naming the type to read the slot as; a
// '&' suffix, or none, lets indexing continue into a nested table.
func (p *Parser) parseVarAccess(v Var, nameTok Token) (Expression, error) {
	exp := Expression{Type: v.Type, Code: p.gen.Var(v)}
	if p.stream.Raw().Type != LBRACKET {
		return exp, nil
	}
	if v.Type != Table {
		return Expression{}, errorAt(nameTok, "Only tables can be indexed")
	}
	for p.stream.Raw().Type == LBRACKET {
		idx, err := p.parseIndex()
		if err != nil {
			return Expression{}, err
		}
		as, ok := TypeFromSuffix(p.stream.Raw().Type)
		if ok {
			p.stream.Next()
		} else if p.stream.Raw().Type == LBRACKET {
			as = Table
		} else {
			return Expression{}, errorAt(p.stream.Raw(), "Expected type suffix at end of table indexing")
		}
		exp = Expression{Type: as, Code: p.gen.IndexGet(as, exp.Code, idx)}
		if as != Table && p.stream.Raw().Type == LBRACKET {
			return Expression{}, errorAt(p.stream.Raw(), "Only tables can be indexed")
		}
	}
	return exp, nil
}

func (p *Parser) parseCall(fn *Function) (Expression, error) {
	nameTok := p.stream.Next()
	if t, ok := TypeFromSuffix(p.stream.Raw().Type); ok {
		if t != fn.Return {
			return Expression{}, errorAt(p.stream.Raw(), "Incompatible types")
		}
		p.stream.Next()
	}
	if p.stream.Raw().Type != LPAREN {
		return Expression{}, errorAt(nameTok, "Expected '(' in function call")
	}
	p.stream.Next()

	var args []Expression
	if p.stream.Peek(0).Type != RPAREN {
		for {
			tok := p.stream.Peek(0)
			if len(args) == len(fn.Params) {
				return Expression{}, errorAt(tok, "Too many arguments")
			}
			arg, err := p.parseExpression()
			if err != nil {
				return Expression{}, err
			}
			if err := requireValue(arg, tok); err != nil {
				return Expression{}, err
			}
			param := fn.Params[len(args)]
			if !AreCompatible(param.Type, arg.Type) {
				return Expression{}, errorAt(tok, "Incompatible types")
			}
			args = append(args, p.coerce(arg, param.Type))
			if p.stream.Peek(0).Type != COMMA {
				break
			}
			p.stream.Next()
		}
	}
	closeTok, err := p.expect(RPAREN, "Expected ')'")
	if err != nil {
		return Expression{}, err
	}
	if len(args) < len(fn.Params) {
		return Expression{}, errorAt(closeTok, "Not enough arguments")
	}
	return Expression{Type: fn.Return, Code: p.gen.Call(fn, args)}, nil
}
