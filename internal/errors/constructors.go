package errors

// Config errors

func ConfigNotFound(path string) *AssembleError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigInvalid(path string, cause error) *AssembleError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "configuration file invalid").
		WithContext("path", path)
}

func ValidationFailed(field, reason string) *AssembleError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Task registry errors

func TaskNotFound(name string) *AssembleError {
	return New(CategoryTask, SeverityFatal, "task not defined").
		WithContext("task", name)
}

func DuplicateTask(name string) *AssembleError {
	return New(CategoryTask, SeverityFatal, "task already defined").
		WithContext("task", name)
}

func TaskCycle(path []string) *AssembleError {
	return New(CategoryTask, SeverityFatal, "task dependency cycle").
		WithContext("cycle", path)
}

// Storage errors

func StorageError(operation string, cause error) *AssembleError {
	return Wrap(cause, CategoryStorage, SeverityError, "history store operation failed").
		WithContext("operation", operation)
}

// Internal errors

func InternalError(message string, cause error) *AssembleError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
