package api

import "github.com/iudanet/repsync/internal/models"

// FromEntity converts a model snapshot to its wire form
func FromEntity(e *models.Entity) EntityDTO {
	return EntityDTO{
		Type:      e.Type,
		ID:        e.ID,
		Version:   e.Version,
		Fields:    e.Fields,
		Deleted:   e.Deleted,
		Origin:    e.Origin,
		UpdatedAt: e.UpdatedAt,
	}
}

// ToEntity converts a wire snapshot to the model
func (d EntityDTO) ToEntity() *models.Entity {
	return &models.Entity{
		Type:      d.Type,
		ID:        d.ID,
		Version:   d.Version,
		Fields:    d.Fields,
		Deleted:   d.Deleted,
		Origin:    d.Origin,
		UpdatedAt: d.UpdatedAt,
	}
}

// FromSession converts a session to its wire form
func FromSession(s *models.Session) SessionDTO {
	return SessionDTO{
		ID:           s.ID,
		Code:         s.Code,
		HostID:       s.HostID,
		State:        string(s.State),
		Participants: append([]string(nil), s.Participants...),
		Seq:          s.Seq,
		CreatedAt:    s.CreatedAt,
		EndedAt:      s.EndedAt,
		Settings:     FromSettings(s.Settings),
	}
}

// ToSession converts a wire session to the model
func (d SessionDTO) ToSession() *models.Session {
	return &models.Session{
		ID:           d.ID,
		Code:         d.Code,
		HostID:       d.HostID,
		State:        models.SessionState(d.State),
		Participants: append([]string(nil), d.Participants...),
		Seq:          d.Seq,
		CreatedAt:    d.CreatedAt,
		EndedAt:      d.EndedAt,
		Settings:     d.Settings.ToSettings(),
	}
}

// FromSettings converts session settings to the wire form
func FromSettings(s models.SessionSettings) SessionSettingsDTO {
	return SessionSettingsDTO{Name: s.Name, RestSeconds: s.RestSeconds, SyncRestTimers: s.SyncRestTimers}
}

// ToSettings converts wire settings to the model
func (d SessionSettingsDTO) ToSettings() models.SessionSettings {
	return models.SessionSettings{Name: d.Name, RestSeconds: d.RestSeconds, SyncRestTimers: d.SyncRestTimers}
}

// FromEvent converts a session event to the wire form
func FromEvent(e models.SessionEvent) SessionEventDTO {
	dto := SessionEventDTO{
		SessionID: e.SessionID,
		Seq:       e.Seq,
		Type:      string(e.Type),
		SenderID:  e.SenderID,
		Payload:   e.Payload,
		At:        e.At,
	}
	if e.Snapshot != nil {
		snap := FromSession(e.Snapshot)
		dto.Snapshot = &snap
	}
	return dto
}

// ToEvent converts a wire event to the model
func (d SessionEventDTO) ToEvent() models.SessionEvent {
	e := models.SessionEvent{
		SessionID: d.SessionID,
		Seq:       d.Seq,
		Type:      models.SessionEventType(d.Type),
		SenderID:  d.SenderID,
		Payload:   d.Payload,
		At:        d.At,
	}
	if d.Snapshot != nil {
		e.Snapshot = d.Snapshot.ToSession()
	}
	return e
}
