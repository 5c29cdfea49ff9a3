package drivers

import "time"

// Driver is an employee whose compliance documents are tracked.
type Driver struct {
	ID         string    `json:"id"`
	CompanyID  string    `json:"companyId"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Location   string    `json:"location"`
	EmployeeID string    `json:"employeeId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Input creates a driver.
type Input struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Location   string `json:"location"`
	EmployeeID string `json:"employeeId"`
}
