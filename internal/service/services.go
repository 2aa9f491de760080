package service

import "log/slog"

// Stores groups the persistence collaborators. Both the MySQL repositories
// and the in-memory store provide every field.
type Stores struct {
	Users        UserStore
	Tokens       TokenStore
	Venues       VenueStore
	Menu         MenuStore
	Requests     RequestStore
	Reservations ReservationStore
}

// Services is the fully wired service layer.
type Services struct {
	Accounts     *Accounts
	Directory    *Directory
	Gateway      *Gateway
	Requests     *RequestWorkflow
	Reservations *ReservationWorkflow
	Venues       *VenueManagement
}

// New wires every service over st. A nil events publisher drops events.
func New(st Stores, auth AuthConfig, events EventPublisher, log *slog.Logger) *Services {
	if events == nil {
		events = NopPublisher{}
	}
	gw := NewGateway(st.Requests, st.Reservations, st.Venues, events, log)
	return &Services{
		Accounts:     NewAccounts(auth, st.Users, st.Tokens, log),
		Directory:    NewDirectory(st.Venues, st.Menu),
		Gateway:      gw,
		Requests:     NewRequestWorkflow(st.Requests, gw, log),
		Reservations: NewReservationWorkflow(st.Reservations, st.Venues, st.Menu, gw, log),
		Venues:       NewVenueManagement(st.Venues, st.Menu, st.Users, events, log),
	}
}
