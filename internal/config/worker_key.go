package config

type WorkerKeyStruct struct {
	SubmissionJournalQueue string
}

var WorkerKey = &WorkerKeyStruct{
	SubmissionJournalQueue: "submission_journal_queue",
}
