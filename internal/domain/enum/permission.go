package enum

// Permission names the code checks. Which roles hold them is data in the
// roles/permissions tables.
const (
	PermViewPolicies    = "view_policies"
	PermManagePolicies  = "manage_policies"
	PermManageCustomers = "manage_customers"
	PermCreatePayment   = "create_payment"
	PermOverrideArrears = "override_outstanding_balance"
	PermVoidRestore     = "void_restore_receipt"
	PermImportPayments  = "import_payments"
	PermViewReports     = "view_reports"
	PermManageUsers     = "manage_users"
)
