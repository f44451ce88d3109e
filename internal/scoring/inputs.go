package scoring

import "time"

// Inputs bundles the optional data sections a profile is scored from.
// Nil sections are treated as missing, not as zero values.
type Inputs struct {
	Accounting *AccountingData
	Business   *BusinessData
	Location   *LocationData
	Payments   []PaymentRecord
}

// AccountingData holds balance sheet and income statement figures
type AccountingData struct {
	CurrentAssets      float64 `json:"current_assets"`
	CurrentLiabilities float64 `json:"current_liabilities"`
	TotalAssets        float64 `json:"total_assets"`
	TotalDebt          float64 `json:"total_debt"`
	Revenue            float64 `json:"revenue"`
	OperatingIncome    float64 `json:"operating_income"`
	NetIncome          float64 `json:"net_income"`
}

// BusinessData describes the entity itself
type BusinessData struct {
	Sector        string    `json:"sector"`
	FoundedAt     time.Time `json:"founded_at"`
	EmployeeCount int       `json:"employee_count"`
}

// LocationData places the entity geographically
type LocationData struct {
	Country  string `json:"country,omitempty"`
	Province string `json:"province"`
	City     string `json:"city,omitempty"`
}

// PaymentRecord is one repayment from the entity's credit history
type PaymentRecord struct {
	DueDate  time.Time `json:"due_date"`
	Amount   float64   `json:"amount"`
	DaysLate int       `json:"days_late"` // 0 or less means paid on time
}

func (in Inputs) sector() string {
	if in.Business == nil {
		return ""
	}
	return in.Business.Sector
}

func (in Inputs) province() string {
	if in.Location == nil {
		return ""
	}
	return in.Location.Province
}

// dataPoints counts present sections plus individual payment records
func (in Inputs) dataPoints() int {
	n := len(in.Payments)
	if in.Accounting != nil {
		n++
	}
	if in.Business != nil {
		n++
	}
	if in.Location != nil {
		n++
	}
	return n
}
