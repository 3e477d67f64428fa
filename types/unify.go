package types

// Unify returns the narrowest type admitting both a and b, if one exists
// within the option/tuple lattice:
//
//	unify(T, T)            = T
//	unify(Option(X), X)    = Option(X)
//	unify(Option(X), Null) = Option(X)
//	unify(Null, T)         = Option(T)
//	tuples of equal arity unify element-wise
//
// Unify is commutative and idempotent. Any other pairing fails.
func Unify(a, b Type) (Type, bool) {
	if Equal(a, b) {
		return a, true
	}
	if a.Kind == KindOption && (Equal(*a.Elem, b) || b.Kind == KindNull) {
		return a, true
	}
	if b.Kind == KindOption && (Equal(*b.Elem, a) || a.Kind == KindNull) {
		return b, true
	}
	if a.Kind == KindNull {
		return Option(b), true
	}
	if b.Kind == KindNull {
		return Option(a), true
	}
	if a.Kind == KindTuple && b.Kind == KindTuple && len(a.Params) == len(b.Params) {
		params := make([]Type, len(a.Params))
		for i := range a.Params {
			u, ok := Unify(a.Params[i], b.Params[i])
			if !ok {
				return Unknown(), false
			}
			params[i] = u
		}
		return Tuple(params...), true
	}
	return Unknown(), false
}

// Subtype reports whether a value of type sub conforms to type sup.
// It is used to route individual records against a chosen majority type,
// not for unification:
//
//	T <: T
//	T <: Any
//	T <: Option(X)  iff T ∈ {X, Null}
//	tuples of equal arity are subtypes iff each field is
//
// The relation is reflexive and transitive.
func Subtype(sub, sup Type) bool {
	if sup.Kind == KindAny {
		return true
	}
	if Equal(sub, sup) {
		return true
	}
	if sup.Kind == KindOption && (Equal(sub, *sup.Elem) || sub.Kind == KindNull) {
		return true
	}
	if sub.Kind == KindTuple && sup.Kind == KindTuple && len(sub.Params) == len(sup.Params) {
		for i := range sub.Params {
			if !Subtype(sub.Params[i], sup.Params[i]) {
				return false
			}
		}
		return true
	}
	return false
}
