package config

type WorkerKeyStruct struct {
	PersistAnswersQueue string
	RescoreQueue        string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnswersQueue: "persist_answers_queue",
	RescoreQueue:        "rescore_queue",
}
