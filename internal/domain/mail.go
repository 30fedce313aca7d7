package domain

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type AllocationCompletedMailData struct {
	Name        string `json:"name"`
	Time        string `json:"time"`
	Assigned    int    `json:"assigned"`
	OffDuty     int    `json:"offDuty"`
	LunchOffice int    `json:"lunchOffice"`
	LunchSite   int    `json:"lunchSite"`
}
