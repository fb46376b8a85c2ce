// Package models defines the persisted domain models for groupledger.
//
// # Models
//
//   - Group: a set of members sharing expenses, with a display currency
//   - Expense: an immutable spending or income event recorded by a member
//   - Settlement: a real payment from one member to another
//
// Members are identified by opaque strings (the subject of their auth token).
// Relationships use ID strings rather than pointers.
//
// # Settlement expenses
//
// Recording a settlement writes a Settlement and an Expense with category
// "settlement" in one transaction. The expense keeps the payment visible in
// the group's transaction history; balance computation skips it by category.
package models
