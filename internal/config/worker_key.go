package config

type WorkerKeyStruct struct {
	ViolationLogQueue string
	GradeQueue        string
	StatsQueue        string
	DraftQueue        string
}

var WorkerKey = &WorkerKeyStruct{
	ViolationLogQueue: "persist_violations_queue",
	GradeQueue:        "persist_grades_queue",
	StatsQueue:        "refresh_stats_queue",
	DraftQueue:        "persist_drafts_queue",
}
