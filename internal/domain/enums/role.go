package enums

type Role string

const (
	RoleRequest Role = "request"
	RoleOffer   Role = "offer"
)

// Opposite returns the role held by the counterpart of a pairing.
func (r Role) Opposite() Role {
	if r == RoleRequest {
		return RoleOffer
	}
	return RoleRequest
}
