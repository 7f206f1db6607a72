package services

import (
	"sort"
	"strings"

	"github.com/managenow/api/migration"
	"github.com/managenow/api/models"
)

// --- STATIC DICTIONARY ---
// Keywords map bank descriptions onto the default category names.
var staticRules = map[string]string{
	// INCOME
	"gaji": "Salary", "salary": "Salary", "payroll": "Salary", "tunjangan hari raya": "Salary",
	"freelance": "Freelance", "honor": "Freelance", "fee proyek": "Freelance",
	"dividen": "Investment", "dividend": "Investment", "bunga": "Investment", "interest": "Investment",
	"hadiah": "Gift", "angpao": "Gift",

	// FOOD
	"gofood": "Food & Dining", "grabfood": "Food & Dining", "shopeefood": "Food & Dining",
	"restoran": "Food & Dining", "restaurant": "Food & Dining", "cafe": "Food & Dining",
	"kopi": "Food & Dining", "starbucks": "Food & Dining", "mcdonald": "Food & Dining", "kfc": "Food & Dining",

	// GROCERIES
	"indomaret": "Groceries", "alfamart": "Groceries", "superindo": "Groceries",
	"hypermart": "Groceries", "transmart": "Groceries", "lottemart": "Groceries", "ranch market": "Groceries",

	// TRANSPORT
	"gojek": "Transportation", "goride": "Transportation", "grab": "Transportation",
	"krl": "Transportation", "mrt": "Transportation", "transjakarta": "Transportation",
	"pertamina": "Transportation", "shell": "Transportation", "jalan tol": "Transportation", "parkir": "Transportation",

	// SHOPPING
	"tokopedia": "Shopping", "shopee": "Shopping", "lazada": "Shopping", "blibli": "Shopping", "zalora": "Shopping",

	// BILLS
	"pln": "Bills & Utilities", "listrik": "Bills & Utilities", "pdam": "Bills & Utilities",
	"telkomsel": "Bills & Utilities", "indihome": "Bills & Utilities", "xl axiata": "Bills & Utilities",
	"bpjs": "Bills & Utilities", "pulsa": "Bills & Utilities", "internet": "Bills & Utilities",

	// ENTERTAINMENT
	"netflix": "Entertainment", "spotify": "Entertainment", "disney": "Entertainment",
	"cgv": "Entertainment", "xxi": "Entertainment", "steam": "Entertainment", "youtube": "Entertainment",

	// HEALTH
	"apotek": "Health", "kimia farma": "Health", "guardian": "Health", "klinik": "Health",
	"rumah sakit": "Health", "halodoc": "Health",

	// EDUCATION
	"sekolah": "Education", "kursus": "Education", "universitas": "Education", "ruangguru": "Education",

	// TRANSFER
	"transfer": "Transfer", "trf": "Transfer", "bi-fast": "Transfer",
}

const (
	otherIncome  = "Other Income"
	otherExpense = "Other Expense"
)

type rule struct {
	keyword  string
	category string
}

// Categorizer assigns default category names to imported bank transactions.
type Categorizer struct {
	rules []rule
}

func NewCategorizer() *Categorizer {
	rules := make([]rule, 0, len(staticRules))
	for k, v := range staticRules {
		rules = append(rules, rule{keyword: k, category: v})
	}
	// Longest keyword first: "grabfood" before "grab".
	sort.Slice(rules, func(i, j int) bool {
		if len(rules[i].keyword) != len(rules[j].keyword) {
			return len(rules[i].keyword) > len(rules[j].keyword)
		}
		return rules[i].keyword < rules[j].keyword
	})
	return &Categorizer{rules: rules}
}

// Category picks the default category for a bank movement. Labels are
// tried in order; a match whose category has the wrong type is ignored.
func (c *Categorizer) Category(typ string, labels ...string) string {
	for _, raw := range labels {
		label := strings.ToLower(strings.TrimSpace(raw))
		if label == "" {
			continue
		}
		if cat, ok := staticRules[label]; ok && categoryType(cat) == typ {
			return cat
		}
		for _, r := range c.rules {
			if strings.Contains(label, r.keyword) && categoryType(r.category) == typ {
				return r.category
			}
		}
	}
	if typ == models.TypeIncome {
		return otherIncome
	}
	return otherExpense
}

func categoryType(name string) string {
	for _, c := range migration.DefaultCategories {
		if c.Name == name {
			return c.Type
		}
	}
	return ""
}
