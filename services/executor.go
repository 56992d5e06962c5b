package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"glowdesk-wa-agent/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FunctionHandler executes one catalog operation against the persistence layer
type FunctionHandler func(args json.RawMessage) FunctionResult

// FunctionExecutor dispatches model function calls through a typed registry.
// Every query it issues is scoped to the handler's organization, so
// cross-tenant access is structurally impossible.
type FunctionExecutor struct {
	db       *gorm.DB
	org      *models.Organization
	schedule *ScheduleResolver
	session  *models.ChatSession
	handlers map[string]FunctionHandler
	now      func() time.Time
}

func NewFunctionExecutor(db *gorm.DB, org *models.Organization, schedule *ScheduleResolver, session *models.ChatSession) *FunctionExecutor {
	e := &FunctionExecutor{
		db:       db,
		org:      org,
		schedule: schedule,
		session:  session,
		now:      time.Now,
	}
	e.handlers = map[string]FunctionHandler{
		"check_availability":  e.checkAvailability,
		"book_appointment":    e.bookAppointment,
		"cancel_appointment":  e.cancelAppointment,
		"get_client_bookings": e.getClientBookings,
		"get_services":        e.getServices,
		"get_service_info":    e.getServiceInfo,
		"collect_feedback":    e.collectFeedback,
	}
	return e
}

// Execute dispatches by function name. An unknown name is a programming
// error (the model asked for something outside the catalog) and is returned
// as a hard error, not a failure result.
func (e *FunctionExecutor) Execute(name string, args json.RawMessage) (result FunctionResult, err error) {
	handler, ok := e.handlers[name]
	if !ok {
		return FunctionResult{}, fmt.Errorf("unknown function %q requested by model", name)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ [Executor] Panic in %s: %v", name, r)
			result = failure("errore interno durante l'operazione")
			err = nil
		}
	}()

	return handler(args), nil
}

func failure(msg string) FunctionResult {
	return FunctionResult{Success: false, Error: msg}
}

func success(data interface{}) FunctionResult {
	return FunctionResult{Success: true, Data: data}
}

// activeBookingStatuses: bookings that block a slot
func activeBookingScope(db *gorm.DB) *gorm.DB {
	return db.Where("status NOT IN ?", []string{models.BookingCancelled, models.BookingNoShow})
}

func (e *FunctionExecutor) checkAvailability(args json.RawMessage) FunctionResult {
	var req struct {
		ServiceID     string `json:"service_id"`
		Date          string `json:"date"`
		PreferredTime string `json:"preferred_time"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return failure("parametri non validi per la verifica di disponibilità")
	}

	var service models.Service
	err := e.db.Where("id = ? AND organization_id = ? AND is_active = ?", req.ServiceID, e.org.ID, true).
		First(&service).Error
	if err != nil {
		return failure("servizio non trovato")
	}

	day, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
	if err != nil {
		return failure("data non valida, usa il formato YYYY-MM-DD")
	}

	openMin, closeMin, open := e.schedule.WindowFor(day.Weekday())
	if !open {
		// Closed day is a normal answer, not an error
		return success(map[string]interface{}{
			"available": false,
			"date":      req.Date,
			"reason":    "il salone è chiuso in questa data",
		})
	}

	dayEnd := day.Add(24 * time.Hour)
	var bookings []models.Booking
	err = activeBookingScope(e.db.Where("organization_id = ?", e.org.ID)).
		Where("start_at >= ? AND start_at < ?", day, dayEnd).
		Find(&bookings).Error
	if err != nil {
		return failure("impossibile verificare la disponibilità al momento")
	}

	slots := AvailableSlots(openMin, closeMin, service.DurationMinutes, day, bookings)

	data := map[string]interface{}{
		"available": len(slots) > 0,
		"date":      req.Date,
		"service":   service.Name,
		"duration":  service.DurationMinutes,
		"slots":     slots,
	}
	if req.PreferredTime != "" {
		preferredAvailable := false
		for _, slot := range slots {
			if slot == req.PreferredTime {
				preferredAvailable = true
				break
			}
		}
		data["preferred_time"] = req.PreferredTime
		data["preferred_available"] = preferredAvailable
	}
	return success(data)
}

func (e *FunctionExecutor) bookAppointment(args json.RawMessage) FunctionResult {
	var req struct {
		ClientPhone string `json:"client_phone"`
		ServiceID   string `json:"service_id"`
		Datetime    string `json:"datetime"`
		Notes       string `json:"notes"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return failure("parametri non validi per la prenotazione")
	}

	var service models.Service
	err := e.db.Where("id = ? AND organization_id = ? AND is_active = ?", req.ServiceID, e.org.ID, true).
		First(&service).Error
	if err != nil {
		return failure("servizio non trovato")
	}

	startAt, err := parseDatetime(req.Datetime)
	if err != nil {
		return failure("data e ora non valide, usa il formato YYYY-MM-DD HH:MM")
	}
	endAt := startAt.Add(time.Duration(service.DurationMinutes) * time.Minute)

	client, err := e.findOrCreateClient(req.ClientPhone)
	if err != nil {
		return failure("impossibile registrare il cliente")
	}

	booking := models.Booking{
		ID:             uuid.New().String(),
		OrganizationID: e.org.ID,
		ClientID:       client.ID,
		ServiceID:      service.ID,
		StartAt:        startAt,
		EndAt:          endAt,
		Status:         models.BookingConfirmed,
		Price:          service.Price,
		Source:         "whatsapp",
		Notes:          req.Notes,
	}

	// The overlap check runs inside the booking transaction so two
	// near-simultaneous bookings cannot both claim the same slot.
	err = e.db.Transaction(func(tx *gorm.DB) error {
		var conflicts int64
		err := activeBookingScope(tx.Model(&models.Booking{}).Where("organization_id = ?", e.org.ID)).
			Where("start_at < ? AND end_at > ?", endAt, startAt).
			Count(&conflicts).Error
		if err != nil {
			return err
		}
		if conflicts > 0 {
			return fmt.Errorf("slot taken")
		}
		return tx.Create(&booking).Error
	})
	if err != nil {
		if err.Error() == "slot taken" {
			return failure("l'orario richiesto non è più disponibile, scegli un altro orario")
		}
		return failure("impossibile completare la prenotazione al momento")
	}

	// Link the client into the chat session for future turns
	if e.session != nil {
		e.session.ClientID = &client.ID
	}

	log.Printf("📅 [Executor] Booking %s created for %s (%s at %s)",
		booking.ID, client.FullName, service.Name, startAt.Format("2006-01-02 15:04"))

	return success(map[string]interface{}{
		"booking_id": booking.ID,
		"service":    service.Name,
		"date":       startAt.Format("2006-01-02"),
		"time":       startAt.Format("15:04"),
		"price":      service.Price,
		"client":     client.FullName,
	})
}

func (e *FunctionExecutor) cancelAppointment(args json.RawMessage) FunctionResult {
	var req struct {
		BookingID string `json:"booking_id"`
		Reason    string `json:"reason"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return failure("parametri non validi per l'annullamento")
	}

	var booking models.Booking
	err := e.db.Where("id = ? AND organization_id = ?", req.BookingID, e.org.ID).
		First(&booking).Error
	if err != nil {
		return failure("prenotazione non trovata")
	}

	if booking.StartAt.Before(e.now()) {
		return failure("non è possibile annullare un appuntamento già passato")
	}

	now := e.now()
	err = e.db.Model(&booking).Updates(map[string]interface{}{
		"status":              models.BookingCancelled,
		"cancellation_reason": req.Reason,
		"cancelled_at":        now,
	}).Error
	if err != nil {
		return failure("impossibile annullare la prenotazione al momento")
	}

	return success(map[string]interface{}{
		"booking_id": booking.ID,
		"cancelled":  true,
		"date":       booking.StartAt.Format("2006-01-02"),
		"time":       booking.StartAt.Format("15:04"),
	})
}

func (e *FunctionExecutor) getClientBookings(args json.RawMessage) FunctionResult {
	var req struct {
		ClientPhone string `json:"client_phone"`
		Status      string `json:"status"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return failure("parametri non validi")
	}

	client, err := e.findClient(req.ClientPhone)
	if err != nil {
		return failure("cliente non trovato")
	}

	query := e.db.Where("organization_id = ? AND client_id = ?", e.org.ID, client.ID)
	switch req.Status {
	case "upcoming":
		query = activeBookingScope(query).Where("start_at > ?", e.now())
	case "past":
		query = query.Where("start_at <= ?", e.now())
	}

	var bookings []models.Booking
	if err := query.Order("start_at ASC").Find(&bookings).Error; err != nil {
		return failure("impossibile recuperare gli appuntamenti")
	}

	serviceNames := e.serviceNameLookup(bookings)

	formatted := make([]map[string]interface{}, 0, len(bookings))
	for _, b := range bookings {
		formatted = append(formatted, map[string]interface{}{
			"booking_id": b.ID,
			"date":       b.StartAt.Format("2006-01-02"),
			"time":       b.StartAt.Format("15:04"),
			"service":    serviceNames[b.ServiceID],
			"status":     b.Status,
			"price":      b.Price,
		})
	}

	return success(map[string]interface{}{
		"client":   client.FullName,
		"bookings": formatted,
		"count":    len(formatted),
	})
}

func (e *FunctionExecutor) getServices(args json.RawMessage) FunctionResult {
	var req struct {
		Category string `json:"category"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return failure("parametri non validi")
	}

	query := e.db.Where("organization_id = ? AND is_active = ?", e.org.ID, true)
	if req.Category != "" {
		query = query.Where("category = ?", req.Category)
	}

	var services []models.Service
	if err := query.Order("name ASC").Find(&services).Error; err != nil {
		return failure("impossibile recuperare i servizi")
	}

	list := make([]map[string]interface{}, 0, len(services))
	for _, svc := range services {
		list = append(list, map[string]interface{}{
			"service_id": svc.ID,
			"name":       svc.Name,
			"category":   svc.Category,
			"duration":   svc.DurationMinutes,
			"price":      svc.Price,
		})
	}
	return success(map[string]interface{}{"services": list, "count": len(list)})
}

func (e *FunctionExecutor) getServiceInfo(args json.RawMessage) FunctionResult {
	var req struct {
		ServiceID string `json:"service_id"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return failure("parametri non validi")
	}

	var service models.Service
	err := e.db.Where("id = ? AND organization_id = ? AND is_active = ?", req.ServiceID, e.org.ID, true).
		First(&service).Error
	if err != nil {
		return failure("servizio non trovato")
	}

	return success(map[string]interface{}{
		"service_id":  service.ID,
		"name":        service.Name,
		"description": service.Description,
		"category":    service.Category,
		"duration":    service.DurationMinutes,
		"price":       service.Price,
	})
}

func (e *FunctionExecutor) collectFeedback(args json.RawMessage) FunctionResult {
	var req struct {
		ClientPhone string  `json:"client_phone"`
		ServiceID   *string `json:"service_id"`
		BookingID   *string `json:"booking_id"`
		Rating      int     `json:"rating"`
		Comment     string  `json:"comment"`
		Category    string  `json:"category"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return failure("parametri non validi per la recensione")
	}

	// Validate before any write
	if req.Rating < 1 || req.Rating > 5 {
		return failure("il voto deve essere compreso tra 1 e 5")
	}

	client, err := e.findOrCreateClient(req.ClientPhone)
	if err != nil {
		return failure("impossibile registrare il cliente")
	}

	feedback := models.Feedback{
		ID:             uuid.New().String(),
		OrganizationID: e.org.ID,
		ClientID:       client.ID,
		ServiceID:      req.ServiceID,
		BookingID:      req.BookingID,
		Rating:         req.Rating,
		Comment:        req.Comment,
		Category:       req.Category,
	}
	if err := e.db.Create(&feedback).Error; err != nil {
		return failure("impossibile salvare la recensione al momento")
	}

	return success(map[string]interface{}{
		"feedback_id": feedback.ID,
		"rating":      req.Rating,
		"message":     FeedbackThanks(req.Rating),
	})
}

// findClient matches by phone against both phone fields, org-scoped
func (e *FunctionExecutor) findClient(phone string) (*models.Client, error) {
	var client models.Client
	err := e.db.Where("organization_id = ? AND (phone = ? OR whatsapp_phone = ?)", e.org.ID, phone, phone).
		First(&client).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// findOrCreateClient opportunistically creates a minimal client record so a
// stranger's first booking or feedback can proceed. The placeholder name is
// enriched later through other flows.
func (e *FunctionExecutor) findOrCreateClient(phone string) (*models.Client, error) {
	client, err := e.findClient(phone)
	if err == nil {
		return client, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	created := models.Client{
		ID:             uuid.New().String(),
		OrganizationID: e.org.ID,
		FullName:       placeholderName(phone),
		Phone:          phone,
		WhatsAppPhone:  phone,
	}
	if err := e.db.Create(&created).Error; err != nil {
		return nil, err
	}
	log.Printf("👤 [Executor] Created client %s for phone %s", created.ID, phone)
	return &created, nil
}

func placeholderName(phone string) string {
	digits := phone
	if len(digits) > 4 {
		digits = digits[len(digits)-4:]
	}
	return "Cliente " + digits
}

// serviceNameLookup maps service IDs to names for booking formatting
func (e *FunctionExecutor) serviceNameLookup(bookings []models.Booking) map[string]string {
	ids := make([]string, 0, len(bookings))
	seen := map[string]bool{}
	for _, b := range bookings {
		if !seen[b.ServiceID] {
			seen[b.ServiceID] = true
			ids = append(ids, b.ServiceID)
		}
	}
	names := map[string]string{}
	if len(ids) == 0 {
		return names
	}
	var services []models.Service
	e.db.Where("organization_id = ? AND id IN ?", e.org.ID, ids).Find(&services)
	for _, svc := range services {
		names[svc.ID] = svc.Name
	}
	return names
}

// parseDatetime accepts the model's "YYYY-MM-DD HH:MM" shape with an RFC3339
// fallback
func parseDatetime(value string) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02 15:04", value, time.Local); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
