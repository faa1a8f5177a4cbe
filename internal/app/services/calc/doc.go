// Package calc holds the closed-form housing calculations shared by the sync
// jobs, the dashboard and the relocation advisor. Every function is pure.
package calc
