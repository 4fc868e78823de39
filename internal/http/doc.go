// Package http exposes the office planner over a JSON API routed with chi.
//
// Everything except registration, token issuance and /healthz lives behind
// RequireAuth and expects an `Authorization: Bearer <access token>` header.
// The router mounts:
//   - POST /api/auth/register, /api/auth/token, /api/auth/token/refresh: rate
//     limited per client IP.
//   - /api/desks and /api/desks/{deskID}: desk catalog. Mutations are admin only
//     and are revalidated against the seating rule.
//   - /api/skills and /api/skills/{skillID}.
//   - /api/employees, /api/employees/export (XLSX), /api/employees/{employeeID}
//     and POST /api/employees/{employeeID}/move for keepers.
//   - /api/employees/{employeeID}/images: multipart upload under the "image"
//     field, plus /{imageID} for order and title changes and /{imageID}/content
//     for the stored bytes.
//   - /api/reservations, /api/reservations/series and
//     /api/reservations/{reservationID}.
//   - /api/users, /api/users/{userID} and /api/groups.
//
// A placement rejection is answered with {"message": "..."} and 422, or 409
// when the desk is already booked. Field validation failures carry an "errors"
// map keyed by JSON field name.
//
// Request and response DTOs live next to their handlers.
package http
