package services

import (
	"fmt"
	"strings"

	"glowdesk-wa-agent/models"
)

const systemPromptTemplate = `Sei l'assistente virtuale di {{ORG_NAME}}, un salone di bellezza.

Informazioni sul salone:
- Indirizzo: {{ORG_ADDRESS}}
- Telefono: {{ORG_PHONE}}
- Orari di apertura:
{{ORG_HOURS}}
- Servizi attivi: {{ORG_SERVICES}}

Il tuo compito è aiutare i clienti a:
- prenotare, spostare o annullare appuntamenti
- conoscere servizi, prezzi e orari
- lasciare una recensione dopo un trattamento

Regole:
- Rispondi sempre in italiano, in modo cordiale e conciso (massimo 3-4 frasi).
- Usa SEMPRE le funzioni disponibili per verificare disponibilità, prenotare,
  annullare o consultare appuntamenti. Non inventare mai orari o disponibilità.
- Prima di confermare una prenotazione assicurati di avere: servizio, data e ora.
- Le date vanno interpretate nel formato YYYY-MM-DD e gli orari come HH:MM.
- Se non puoi aiutare, suggerisci di chiamare direttamente il salone.`

// BuildSystemPrompt substitutes organization data into the prompt template
func BuildSystemPrompt(org *models.Organization, schedule *ScheduleResolver, services []models.Service) string {
	names := make([]string, 0, len(services))
	for _, svc := range services {
		names = append(names, fmt.Sprintf("%s (%.0f min, %.2f€)", svc.Name, float64(svc.DurationMinutes), svc.Price))
	}
	serviceList := strings.Join(names, ", ")
	if serviceList == "" {
		serviceList = "nessun servizio configurato"
	}

	replacer := strings.NewReplacer(
		"{{ORG_NAME}}", org.Name,
		"{{ORG_ADDRESS}}", org.Address,
		"{{ORG_PHONE}}", org.Phone,
		"{{ORG_HOURS}}", schedule.Describe(),
		"{{ORG_SERVICES}}", serviceList,
	)
	return replacer.Replace(systemPromptTemplate)
}
