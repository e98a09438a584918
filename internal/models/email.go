package models

// Email — письмо, передаваемое через очередь воркеру рассылки.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	IsHTML  bool   `json:"is_html"`
}
