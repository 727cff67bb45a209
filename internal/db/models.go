// Package db manages the read-only finance database the SQL tools query.
package db

// schemaStatements creates the finance tables. Each entry is a single
// statement because the sqlite driver prepares one statement at a time.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS companies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		symbol TEXT NOT NULL UNIQUE,
		sector TEXT NOT NULL,
		founded_year INTEGER NOT NULL,
		employees INTEGER NOT NULL,
		market_cap REAL NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS financial_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		company_id INTEGER NOT NULL,
		quarter TEXT NOT NULL,
		year INTEGER NOT NULL,
		revenue REAL NOT NULL,
		profit REAL NOT NULL,
		expenses REAL NOT NULL,
		FOREIGN KEY (company_id) REFERENCES companies (id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_financial_records_company
		ON financial_records (company_id, year, quarter);`,
}

// requiredTables must all exist for the schema to be considered intact.
var requiredTables = []string{"companies", "financial_records"}

// Company is a row in the companies table.
type Company struct {
	Name        string
	Symbol      string
	Sector      string
	FoundedYear int
	Employees   int
	MarketCap   float64
}

// FinancialRecord is a row in the financial_records table.
type FinancialRecord struct {
	CompanyID int
	Quarter   string
	Year      int
	Revenue   float64
	Profit    float64
	Expenses  float64
}

// QueryResult holds the structured result of a read-only query.
type QueryResult struct {
	Rows            []map[string]interface{} `json:"rows"`
	RowCount        int                      `json:"row_count"`
	Columns         []string                 `json:"columns"`
	ExecutionTimeMs float64                  `json:"execution_time_ms"`
}

// SampleCompanies seeds a fresh database with a small cross-sector set.
var SampleCompanies = []Company{
	{Name: "TechCorp", Symbol: "TECH", Sector: "Technology", FoundedYear: 1998, Employees: 125000, MarketCap: 2.4e12},
	{Name: "FinanceHub", Symbol: "FINH", Sector: "Financial Services", FoundedYear: 1985, Employees: 42000, MarketCap: 3.8e11},
	{Name: "GreenEnergy Solutions", Symbol: "GREN", Sector: "Energy", FoundedYear: 2009, Employees: 18000, MarketCap: 9.5e10},
	{Name: "HealthPlus Pharma", Symbol: "HLTH", Sector: "Healthcare", FoundedYear: 1972, Employees: 67000, MarketCap: 5.1e11},
	{Name: "RetailMax", Symbol: "RTMX", Sector: "Retail", FoundedYear: 1994, Employees: 230000, MarketCap: 1.6e11},
	{Name: "CloudNine Systems", Symbol: "CLD9", Sector: "Technology", FoundedYear: 2012, Employees: 9500, MarketCap: 7.2e10},
}

// sampleQuarters covers four quarters of 2024 plus the first quarter of 2025.
var sampleQuarters = []struct {
	quarter string
	year    int
}{
	{"Q1", 2024},
	{"Q2", 2024},
	{"Q3", 2024},
	{"Q4", 2024},
	{"Q1", 2025},
}

// SampleFinancialRecords generates deterministic quarterly records for each
// sample company: revenue scales with market cap and grows a few percent a
// quarter, profit runs at a fixed margin.
func SampleFinancialRecords() []FinancialRecord {
	var records []FinancialRecord
	for i, company := range SampleCompanies {
		companyID := i + 1
		revenue := company.MarketCap / 40
		for _, q := range sampleQuarters {
			profit := revenue * 0.18
			records = append(records, FinancialRecord{
				CompanyID: companyID,
				Quarter:   q.quarter,
				Year:      q.year,
				Revenue:   revenue,
				Profit:    profit,
				Expenses:  revenue - profit,
			})
			revenue *= 1.04
		}
	}
	return records
}

// ValidateSchemaIntegrity checks that every required table is present.
func ValidateSchemaIntegrity(tables []string) bool {
	present := make(map[string]bool, len(tables))
	for _, t := range tables {
		present[t] = true
	}
	for _, required := range requiredTables {
		if !present[required] {
			return false
		}
	}
	return true
}
