package types

// Standard table names for Store.GetTable.
const (
	PatientsTable = "patients"
	PlansTable    = "plans"
	MealsTable    = "meals"
	FoodsTable    = "foods"
)

// StandardTableNames lists all standard table names for enumeration.
var StandardTableNames = []string{
	PatientsTable,
	PlansTable,
	MealsTable,
	FoodsTable,
}
