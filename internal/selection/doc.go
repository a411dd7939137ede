// Package selection publishes the grid's selected record to listeners in
// other parts of the application.
package selection
