package models

type SyncSummary struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

type SyncStatus struct {
	Pending        int  `json:"pending"`
	Synced         int  `json:"synced"`
	Failed         int  `json:"failed"`
	Total          int  `json:"total"`
	IsOnline       bool `json:"is_online"`
	SyncInProgress bool `json:"sync_in_progress"`
}

type QueueStats struct {
	Pending int `json:"pending"`
	Synced  int `json:"synced"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}
