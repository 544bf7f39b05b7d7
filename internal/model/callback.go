package model

// CallbackRecord is a normalized inbound callback
type CallbackRecord struct {
	JobID       string
	Success     bool
	Items       []string
	ItemCount   int
	ErrorDetail string
}

// Completion converts the callback into the terminal transition it requests
func (r CallbackRecord) Completion() JobCompletion {
	if r.Success {
		items := r.Items
		if items == nil {
			items = []string{}
		}
		return JobCompletion{
			Status:  StatusCompleted,
			Results: &JobResults{Items: items, ItemCount: r.ItemCount},
		}
	}

	msg := r.ErrorDetail
	if msg == "" {
		msg = "scrape reported failure"
	}
	return JobCompletion{Status: StatusFailed, ErrorMessage: msg}
}

// CallbackAck is returned to the external system for every attributable callback
type CallbackAck struct {
	Status string `json:"status"`
	JobID  string `json:"jobId"`
}

// StartRequest is the body of a start-job request. url and sessionCookie are
// accepted as aliases.
type StartRequest struct {
	Target        string `json:"target"`
	Credential    string `json:"credential,omitempty"`
	URL           string `json:"url,omitempty"`
	SessionCookie string `json:"sessionCookie,omitempty"`
}

// Normalize folds the alias fields into Target and Credential
func (r StartRequest) Normalize() StartRequest {
	if r.Target == "" {
		r.Target = r.URL
	}
	if r.Credential == "" {
		r.Credential = r.SessionCookie
	}
	r.URL, r.SessionCookie = "", ""
	return r
}
