package notify

var defaultTemplates = map[Kind]string{
	KindNewBookingOperator: `Novo agendamento - {{.BusinessName}}
Cliente: {{.ClientName}} ({{.ClientPhone}})
Serviço: {{.ServiceName}}
Data: {{.DateBR}} às {{.Slot}}
Valor: {{brl .PriceCents}}

Confirme o pagamento pelos botões abaixo.`,

	KindBookingConfirmationClient: `Olá, {{.ClientName}}! Recebemos seu agendamento de {{.ServiceName}} para {{.DateBR}} às {{.Slot}}.
Valor: {{brl .PriceCents}}.
Assim que o pagamento for confirmado você recebe seu cartão de acesso por aqui.`,

	KindWelcomeClient: `Boas-vindas ao {{.BusinessName}}, {{.ClientName}}! Salve este número para receber avisos dos seus horários.`,

	KindRescheduleOperator: `Agendamento remarcado - {{.BusinessName}}
Cliente: {{.ClientName}} ({{.ClientPhone}})
Serviço: {{.ServiceName}}
De: {{.OldDateBR}} às {{.OldSlot}}
Para: {{.DateBR}} às {{.Slot}}`,

	KindRescheduleConfirmationClient: `Olá, {{.ClientName}}! Seu horário de {{.ServiceName}} foi remarcado para {{.DateBR}} às {{.Slot}}.`,

	KindAccessCard: `Pagamento confirmado! Seu horário: {{.DateBR}} às {{.Slot}}. Apresente este cartão na chegada.`,

	KindAssetResend: `Aqui está novamente seu cartão de acesso. Horário: {{.DateBR}} às {{.Slot}}.`,
}

const (
	confirmButtonLabel = "Pagamento confirmado"
	denyButtonLabel    = "Recusar"
)
