package authz

// OwnerPredicate grants full access when caller is the root profile and no
// node on the chain carries a conflicting owner tag. An image tagged with
// the caller's id but attached to someone else's mod fails here.
func OwnerPredicate(l Lineage, caller string) bool {
	if caller == "" || len(l) == 0 || l.Root() != caller {
		return false
	}
	for _, n := range l {
		if n.OwnerTag != "" && n.OwnerTag != caller {
			return false
		}
	}
	return true
}

// PublicPredicate grants read access when every node on the chain is
// visible: the profile published, the vehicle public.
func PublicPredicate(l Lineage) bool {
	if len(l) == 0 {
		return false
	}
	for _, n := range l {
		if !n.Public {
			return false
		}
	}
	return true
}
