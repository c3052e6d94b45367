package model

// Permission is a named capability that can be granted to a role or directly to a user.
type Permission struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // e.g., "product:create"
	Name string `gorm:"type:varchar(100)" json:"name"`
}

// Permission codes checked by the HTTP layer.
const (
	PermProductView    = "product:view"
	PermProductCreate  = "product:create"
	PermProductUpdate  = "product:update"
	PermProductDelete  = "product:delete"
	PermCategoryView   = "category:view"
	PermCategoryCreate = "category:create"
	PermCategoryUpdate = "category:update"
	PermCategoryDelete = "category:delete"
	PermSaleCreate     = "sale:create"
	PermSaleView       = "sale:view"
	PermPurchaseCreate = "purchase:create"
	PermPurchaseView   = "purchase:view"
	PermStockAdjust    = "stock:adjust"
	PermReportView     = "report:view"
	PermHistoryView    = "history:view"
	PermProfileView    = "profile:view"
	PermUserManage     = "user:manage"
)

// DefaultPermissions are seeded at startup.
var DefaultPermissions = []Permission{
	{Code: PermProductView, Name: "View Products"},
	{Code: PermProductCreate, Name: "Create Product"},
	{Code: PermProductUpdate, Name: "Update Product"},
	{Code: PermProductDelete, Name: "Delete Product"},
	{Code: PermCategoryView, Name: "View Categories"},
	{Code: PermCategoryCreate, Name: "Create Category"},
	{Code: PermCategoryUpdate, Name: "Update Category"},
	{Code: PermCategoryDelete, Name: "Delete Category"},
	{Code: PermSaleCreate, Name: "Create Sale"},
	{Code: PermSaleView, Name: "View Sales"},
	{Code: PermPurchaseCreate, Name: "Create Purchase"},
	{Code: PermPurchaseView, Name: "View Purchases"},
	{Code: PermStockAdjust, Name: "Adjust Stock"},
	{Code: PermReportView, Name: "View Reports"},
	{Code: PermHistoryView, Name: "View Action History"},
	{Code: PermProfileView, Name: "View Own Profile"},
	{Code: PermUserManage, Name: "Manage Users"},
}
