package contact

import "time"

// Record mirrors one row in the `contact` table: a registrant identity we
// have stored at the registrar.  Handle is the registrar-issued id; it is
// reused across every domain the same email registers, which keeps the
// registrar's contact list from proliferating (a required optimization,
// not an incidental one; see GetOrCreate in internal/registrar).
type Record struct {
	ID        uint64    `db:"id"`
	Handle    string    `db:"handle"`
	Name      string    `db:"name"`
	Company   string    `db:"company"`
	Email     string    `db:"email"`
	Phone     string    `db:"phone"` // E.164 as entered, pre-parse
	Street    string    `db:"street"`
	Zip       string    `db:"zip"`
	City      string    `db:"city"`
	Country   string    `db:"country"` // ISO 3166-1 alpha-2
	VATNumber string    `db:"vat_number"`
	RegNumber string    `db:"reg_number"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
