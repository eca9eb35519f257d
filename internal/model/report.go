package model

// ProductStats summarizes redemption activity for one product. Status
// counters reflect each request's latest state.
type ProductStats struct {
	ProductID      string `db:"product_id" json:"product_id"`
	Requested      int64  `db:"requested" json:"requested"`
	Pending        int64  `db:"pending" json:"pending"`
	Approved       int64  `db:"approved" json:"approved"`
	Rejected       int64  `db:"rejected" json:"rejected"`
	Completed      int64  `db:"completed" json:"completed"`
	PointsRedeemed int64  `db:"points_redeemed" json:"points_redeemed"`
}
