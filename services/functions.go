package services

import (
	openai "github.com/sashabaranov/go-openai"
)

// Function catalog version sent to the model on every completion request.
// The model may return at most one function call per turn.
const FunctionCatalogVersion = "v1"

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// FunctionCatalog returns the fixed set of 7 callable operations exposed to
// the language model. Keep names in sync with the executor registry; the
// registry lookup fails hard on an unknown name.
func FunctionCatalog() []openai.FunctionDefinition {
	return []openai.FunctionDefinition{
		{
			Name:        "check_availability",
			Description: "Verifica gli orari disponibili per un servizio in una data specifica",
			Parameters: objectSchema(map[string]interface{}{
				"service_id": map[string]interface{}{
					"type":        "string",
					"description": "ID del servizio richiesto",
				},
				"date": map[string]interface{}{
					"type":        "string",
					"description": "Data richiesta in formato YYYY-MM-DD",
				},
				"preferred_time": map[string]interface{}{
					"type":        "string",
					"description": "Orario preferito in formato HH:MM (opzionale)",
				},
			}, "service_id", "date"),
		},
		{
			Name:        "book_appointment",
			Description: "Prenota un appuntamento per un cliente",
			Parameters: objectSchema(map[string]interface{}{
				"client_phone": map[string]interface{}{
					"type":        "string",
					"description": "Numero di telefono del cliente",
				},
				"service_id": map[string]interface{}{
					"type":        "string",
					"description": "ID del servizio da prenotare",
				},
				"datetime": map[string]interface{}{
					"type":        "string",
					"description": "Data e ora in formato YYYY-MM-DD HH:MM",
				},
				"notes": map[string]interface{}{
					"type":        "string",
					"description": "Note aggiuntive (opzionale)",
				},
			}, "client_phone", "service_id", "datetime"),
		},
		{
			Name:        "cancel_appointment",
			Description: "Annulla un appuntamento esistente",
			Parameters: objectSchema(map[string]interface{}{
				"booking_id": map[string]interface{}{
					"type":        "string",
					"description": "ID della prenotazione da annullare",
				},
				"reason": map[string]interface{}{
					"type":        "string",
					"description": "Motivo dell'annullamento (opzionale)",
				},
			}, "booking_id"),
		},
		{
			Name:        "get_client_bookings",
			Description: "Recupera gli appuntamenti di un cliente",
			Parameters: objectSchema(map[string]interface{}{
				"client_phone": map[string]interface{}{
					"type":        "string",
					"description": "Numero di telefono del cliente",
				},
				"status": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"upcoming", "past", "all"},
					"description": "Filtro temporale sugli appuntamenti",
				},
			}, "client_phone"),
		},
		{
			Name:        "get_services",
			Description: "Elenca i servizi attivi del salone",
			Parameters: objectSchema(map[string]interface{}{
				"category": map[string]interface{}{
					"type":        "string",
					"description": "Categoria di servizi da filtrare (opzionale)",
				},
			}),
		},
		{
			Name:        "get_service_info",
			Description: "Dettagli completi di un singolo servizio",
			Parameters: objectSchema(map[string]interface{}{
				"service_id": map[string]interface{}{
					"type":        "string",
					"description": "ID del servizio",
				},
			}, "service_id"),
		},
		{
			Name:        "collect_feedback",
			Description: "Raccoglie una recensione del cliente con voto da 1 a 5",
			Parameters: objectSchema(map[string]interface{}{
				"client_phone": map[string]interface{}{
					"type":        "string",
					"description": "Numero di telefono del cliente",
				},
				"service_id": map[string]interface{}{
					"type":        "string",
					"description": "ID del servizio recensito (opzionale)",
				},
				"booking_id": map[string]interface{}{
					"type":        "string",
					"description": "ID della prenotazione recensita (opzionale)",
				},
				"rating": map[string]interface{}{
					"type":        "integer",
					"description": "Voto da 1 a 5",
				},
				"comment": map[string]interface{}{
					"type":        "string",
					"description": "Commento libero (opzionale)",
				},
				"category": map[string]interface{}{
					"type":        "string",
					"description": "Categoria del feedback (opzionale)",
				},
			}, "client_phone", "rating"),
		},
	}
}
