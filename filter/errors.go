package filter

import "fmt"

// ConfigError is raised by a filter's ApplySettings, or by chain/registry
// config loading, for an unknown filter id or a malformed/invalid settings
// blob. It is fatal to chain construction.
type ConfigError struct {
	Filter string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Filter == "" {
		return fmt.Sprintf("config: %s", e.Reason)
	}
	return fmt.Sprintf("config: filter %q: %s", e.Filter, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Fields() map[string]interface{} {
	return map[string]interface{}{"filter": e.Filter, "reason": e.Reason}
}

// PersistenceReadError is raised when the Bayesian word file is missing,
// corrupt, or unreadable. It is never fatal: the filter starts empty.
type PersistenceReadError struct {
	Path string
	Err  error
}

func (e *PersistenceReadError) Error() string {
	return fmt.Sprintf("bayes: read %s: %s", e.Path, e.Err)
}

func (e *PersistenceReadError) Unwrap() error { return e.Err }

func (e *PersistenceReadError) Fields() map[string]interface{} {
	return map[string]interface{}{"path": e.Path}
}

// PersistenceWriteError is raised when the durable write protocol (write
// tmp, close, remove destination, rename) fails at any step. Mutations
// continue in memory; the next debounce arming retries the write.
type PersistenceWriteError struct {
	Path string
	Step string
	Err  error
}

func (e *PersistenceWriteError) Error() string {
	return fmt.Sprintf("bayes: write %s (%s): %s", e.Path, e.Step, e.Err)
}

func (e *PersistenceWriteError) Unwrap() error { return e.Err }

func (e *PersistenceWriteError) Fields() map[string]interface{} {
	return map[string]interface{}{"path": e.Path, "step": e.Step}
}

// AsyncClassifyError wraps a panic or error raised by a Filter's Async
// method or by an on_async callback. It never propagates to the caller of
// Chain.Submit; the message is still trained with the best verdict computed
// so far.
type AsyncClassifyError struct {
	Filter string
	Err    error
}

func (e *AsyncClassifyError) Error() string {
	return fmt.Sprintf("async classify: filter %q: %s", e.Filter, e.Err)
}

func (e *AsyncClassifyError) Unwrap() error { return e.Err }

func (e *AsyncClassifyError) Fields() map[string]interface{} {
	return map[string]interface{}{"filter": e.Filter}
}

// DecodeError wraps a failure from the decode_encoded_words or
// decode_transfer collaborators. Callers treat it as an empty string result;
// the filter that triggered it still returns a valid verdict.
type DecodeError struct {
	Collaborator string
	Err          error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode: %s: %s", e.Collaborator, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Fields() map[string]interface{} {
	return map[string]interface{}{"collaborator": e.Collaborator}
}

type fieldsErr interface {
	Fields() map[string]interface{}
}

type unwrapper interface {
	Unwrap() error
}

// Fields walks err's Unwrap chain and merges every Fields() map it finds,
// with outer errors' fields taking precedence over inner ones. Grounded on
// framework/exterrors.Fields's identical walk in the teacher.
func Fields(err error) map[string]interface{} {
	fields := make(map[string]interface{}, 5)

	for err != nil {
		if fe, ok := err.(fieldsErr); ok {
			for k, v := range fe.Fields() {
				if fields[k] != nil {
					continue
				}
				fields[k] = v
			}
		}

		uw, ok := err.(unwrapper)
		if !ok {
			break
		}
		err = uw.Unwrap()
	}

	return fields
}
