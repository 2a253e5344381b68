// Package shared holds the error taxonomy used across the service.
//
// Stores and the importer return errors marked with a Kind; adapters map the
// Kind to a transport response instead of inspecting driver errors:
//
//	switch shared.KindOf(err) {
//	case shared.KindNotFound:
//	    return http.StatusNotFound
//	case shared.KindValidation:
//	    return http.StatusBadRequest
//	case shared.KindTimeout:
//	    return http.StatusGatewayTimeout
//	default:
//	    return http.StatusInternalServerError
//	}
//
// Third-party errors are classified at the boundary with MarkKind, which keeps
// the original error reachable through errors.Is and errors.As:
//
//	if errors.Is(err, sql.ErrNoRows) {
//	    return shared.MarkKind(err, shared.KindNotFound)
//	}
//
// When several kinds are present (errors.Join), KindOf reports the one with the
// highest priority:
//
//	Priority | Kind
//	---------|------------------
//	1        | KindCanceled
//	2        | KindTimeout
//	3        | KindNotFound
//	4        | KindValidation
//	5        | KindConflict
//	6        | KindDependencyFailure
//	7        | KindInternal
//
// Messages are lowercase without trailing punctuation so they compose well
// under Wrap and Wrapf.
package shared
