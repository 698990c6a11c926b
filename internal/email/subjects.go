package email

const (
	subjectLeadClaimed  = "Un tuo lead perso è stato rivendicato"
	subjectLeadLost     = "Lead perso"
	subjectLeadAssigned = "Nuovo lead assegnato"
)
