package reserve_booking

import "time"

// FacilityRequest запрошенный инвентарь
type FacilityRequest struct {
	FacilityID int64
	Quantity   int
}

// Request модель запроса на резервирование подполя
type Request struct {
	UserID     int64     // ID клиента
	ResourceID int64     // ID подполя
	Start      time.Time // Начало окна
	End        time.Time // Конец окна (не включительно)
	Facilities []FacilityRequest
	Activity   string // Вид активности (футбол, бадминтон, ...)
	PayMethod  string // Способ оплаты
}

// FacilityAllocation зарезервированный инвентарь в ответе
type FacilityAllocation struct {
	FacilityID   int64
	FacilityName string
	Quantity     int
}

// Response модель ответа с созданной бронью
type Response struct {
	ID             int64
	UserID         int64
	ResourceID     int64
	FieldID        int64
	BookingDate    time.Time
	Start          time.Time
	End            time.Time
	SelectedSlots  []string
	TotalHours     float64
	TotalPrice     float64
	Deposit        float64
	TotalRemaining float64
	PayMethod      string
	Activity       string
	Status         string
	Facilities     []FacilityAllocation
	CreatedAt      time.Time
}
