package sqlite

// Schema DDL for all tables. Parent references are plain columns: the
// repository owns referential rules, the store does not enforce them.
const (
	createPatients = `CREATE TABLE patients (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    plan_id INTEGER,
    email TEXT,
    age INTEGER NOT NULL,
    sex INTEGER NOT NULL,
    height REAL NOT NULL,
    weight REAL NOT NULL,
    last_updated INTEGER NOT NULL
);`

	createPlans = `CREATE TABLE plans (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    is_template INTEGER NOT NULL DEFAULT 0
);`

	createMeals = `CREATE TABLE meals (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    plan_id INTEGER NOT NULL
);`

	createFoods = `CREATE TABLE foods (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    amount INTEGER NOT NULL,
    unit TEXT NOT NULL,
    meal_id INTEGER NOT NULL
);`
)

// Index DDL for the parent lookups and the template filter.
const (
	idxPatientsPlan  = `CREATE INDEX idx_patients_plan ON patients(plan_id);`
	idxPlansTemplate = `CREATE INDEX idx_plans_template ON plans(is_template);`
	idxMealsPlan     = `CREATE INDEX idx_meals_plan ON meals(plan_id);`
	idxFoodsMeal     = `CREATE INDEX idx_foods_meal ON foods(meal_id);`
)

// schemaDDL lists all CREATE TABLE statements.
var schemaDDL = []string{
	createPatients,
	createPlans,
	createMeals,
	createFoods,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxPatientsPlan,
	idxPlansTemplate,
	idxMealsPlan,
	idxFoodsMeal,
}
