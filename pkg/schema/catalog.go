// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package schema

// Built-in schema catalog: 16 training schemas across 8 domains plus 3
// held-out schemas that never appear in a training split. The held-out
// group exists so generalization can be measured against collections a
// model has never seen.

var orders = SchemaDef{
	Collection: "orders",
	Domain:     "ecommerce",
	Fields: []FieldDef{
		{Name: "order_id", Type: "string", Role: RoleIdentifier, Description: "Unique order identifier"},
		{Name: "customer_id", Type: "string", Role: RoleIdentifier, Description: "Customer reference"},
		{Name: "total_amount", Type: "double", Role: RoleMeasure, Description: "Order total in USD"},
		{Name: "order_date", Type: "date", Role: RoleTimestamp, Description: "Date the order was placed"},
		{Name: "status", Type: "string", Role: RoleEnum, Description: "Order status",
			EnumValues: []string{"pending", "shipped", "delivered", "cancelled"}},
		{Name: "channel", Type: "string", Role: RoleCategory, Description: "Sales channel"},
	},
}

var products = SchemaDef{
	Collection: "products",
	Domain:     "ecommerce",
	Fields: []FieldDef{
		{Name: "product_id", Type: "string", Role: RoleIdentifier, Description: "Product SKU"},
		{Name: "name", Type: "string", Role: RoleText, Description: "Product name"},
		{Name: "price", Type: "double", Role: RoleMeasure, Description: "Unit price"},
		{Name: "category", Type: "string", Role: RoleCategory, Description: "Product category"},
		{Name: "in_stock", Type: "bool", Role: RoleBoolean, Description: "Whether product is in stock"},
		{Name: "rating", Type: "double", Role: RoleMeasure, Description: "Average customer rating"},
		{Name: "created_at", Type: "date", Role: RoleTimestamp, Description: "Date product was listed"},
	},
}

var customers = SchemaDef{
	Collection: "customers",
	Domain:     "ecommerce",
	Fields: []FieldDef{
		{Name: "customer_id", Type: "string", Role: RoleIdentifier, Description: "Unique customer ID"},
		{Name: "email", Type: "string", Role: RoleText, Description: "Email address"},
		{Name: "lifetime_value", Type: "double", Role: RoleMeasure, Description: "Total spend to date"},
		{Name: "signup_date", Type: "date", Role: RoleTimestamp, Description: "Account creation date"},
		{Name: "tier", Type: "string", Role: RoleEnum, Description: "Loyalty tier",
			EnumValues: []string{"bronze", "silver", "gold", "platinum"}},
		{Name: "region", Type: "string", Role: RoleCategory, Description: "Geographic region"},
	},
}

var patientVisits = SchemaDef{
	Collection: "patient_visits",
	Domain:     "healthcare",
	Fields: []FieldDef{
		{Name: "visit_id", Type: "string", Role: RoleIdentifier, Description: "Visit identifier"},
		{Name: "patient_id", Type: "string", Role: RoleIdentifier, Description: "Patient reference"},
		{Name: "charge", Type: "double", Role: RoleMeasure, Description: "Visit charge in USD"},
		{Name: "visit_date", Type: "date", Role: RoleTimestamp, Description: "Date of visit"},
		{Name: "department", Type: "string", Role: RoleCategory, Description: "Hospital department"},
		{Name: "diagnosis", Type: "string", Role: RoleText, Description: "Primary diagnosis"},
		{Name: "is_emergency", Type: "bool", Role: RoleBoolean, Description: "Whether visit was emergency"},
	},
}

var labResults = SchemaDef{
	Collection: "lab_results",
	Domain:     "healthcare",
	Fields: []FieldDef{
		{Name: "result_id", Type: "string", Role: RoleIdentifier, Description: "Result identifier"},
		{Name: "patient_id", Type: "string", Role: RoleIdentifier, Description: "Patient reference"},
		{Name: "value", Type: "double", Role: RoleMeasure, Description: "Test result value"},
		{Name: "collected_at", Type: "date", Role: RoleTimestamp, Description: "Sample collection date"},
		{Name: "test_type", Type: "string", Role: RoleCategory, Description: "Type of lab test"},
		{Name: "status", Type: "string", Role: RoleEnum, Description: "Result status",
			EnumValues: []string{"pending", "completed", "reviewed"}},
	},
}

var sensorReadings = SchemaDef{
	Collection: "sensor_readings",
	Domain:     "iot",
	Fields: []FieldDef{
		{Name: "sensor_id", Type: "string", Role: RoleIdentifier, Description: "Sensor identifier"},
		{Name: "reading", Type: "double", Role: RoleMeasure, Description: "Sensor reading value"},
		{Name: "timestamp", Type: "date", Role: RoleTimestamp, Description: "Reading timestamp"},
		{Name: "location", Type: "string", Role: RoleCategory, Description: "Sensor location"},
		{Name: "unit", Type: "string", Role: RoleEnum, Description: "Measurement unit",
			EnumValues: []string{"celsius", "fahrenheit", "psi", "rpm", "kwh"}},
		{Name: "is_anomaly", Type: "bool", Role: RoleBoolean, Description: "Whether reading is anomalous"},
	},
}

var deviceLogs = SchemaDef{
	Collection: "device_logs",
	Domain:     "iot",
	Fields: []FieldDef{
		{Name: "log_id", Type: "string", Role: RoleIdentifier, Description: "Log entry ID"},
		{Name: "device_id", Type: "string", Role: RoleIdentifier, Description: "Device reference"},
		{Name: "severity", Type: "string", Role: RoleEnum, Description: "Log severity",
			EnumValues: []string{"debug", "info", "warning", "error", "critical"}},
		{Name: "logged_at", Type: "date", Role: RoleTimestamp, Description: "Log timestamp"},
		{Name: "message", Type: "string", Role: RoleText, Description: "Log message"},
		{Name: "response_time_ms", Type: "int", Role: RoleMeasure, Description: "Response time in ms"},
	},
}

var employees = SchemaDef{
	Collection: "employees",
	Domain:     "hr",
	Fields: []FieldDef{
		{Name: "employee_id", Type: "string", Role: RoleIdentifier, Description: "Employee ID"},
		{Name: "name", Type: "string", Role: RoleText, Description: "Full name"},
		{Name: "salary", Type: "double", Role: RoleMeasure, Description: "Annual salary"},
		{Name: "hire_date", Type: "date", Role: RoleTimestamp, Description: "Date of hire"},
		{Name: "department", Type: "string", Role: RoleCategory, Description: "Department name"},
		{Name: "level", Type: "string", Role: RoleEnum, Description: "Job level",
			EnumValues: []string{"junior", "mid", "senior", "lead", "director"}},
		{Name: "is_active", Type: "bool", Role: RoleBoolean, Description: "Currently employed"},
	},
}

var performanceReviews = SchemaDef{
	Collection: "performance_reviews",
	Domain:     "hr",
	Fields: []FieldDef{
		{Name: "review_id", Type: "string", Role: RoleIdentifier, Description: "Review ID"},
		{Name: "employee_id", Type: "string", Role: RoleIdentifier, Description: "Employee reference"},
		{Name: "score", Type: "double", Role: RoleMeasure, Description: "Performance score (1-5)"},
		{Name: "review_date", Type: "date", Role: RoleTimestamp, Description: "Review date"},
		{Name: "reviewer", Type: "string", Role: RoleText, Description: "Reviewer name"},
		{Name: "category", Type: "string", Role: RoleCategory, Description: "Review category"},
	},
}

var transactions = SchemaDef{
	Collection: "transactions",
	Domain:     "finance",
	Fields: []FieldDef{
		{Name: "txn_id", Type: "string", Role: RoleIdentifier, Description: "Transaction ID"},
		{Name: "account_id", Type: "string", Role: RoleIdentifier, Description: "Account reference"},
		{Name: "amount", Type: "double", Role: RoleMeasure, Description: "Transaction amount"},
		{Name: "txn_date", Type: "date", Role: RoleTimestamp, Description: "Transaction date"},
		{Name: "type", Type: "string", Role: RoleEnum, Description: "Transaction type",
			EnumValues: []string{"debit", "credit", "transfer", "fee"}},
		{Name: "merchant", Type: "string", Role: RoleCategory, Description: "Merchant name"},
		{Name: "is_flagged", Type: "bool", Role: RoleBoolean, Description: "Flagged for review"},
	},
}

var accounts = SchemaDef{
	Collection: "accounts",
	Domain:     "finance",
	Fields: []FieldDef{
		{Name: "account_id", Type: "string", Role: RoleIdentifier, Description: "Account ID"},
		{Name: "owner_name", Type: "string", Role: RoleText, Description: "Account owner name"},
		{Name: "balance", Type: "double", Role: RoleMeasure, Description: "Current balance"},
		{Name: "opened_at", Type: "date", Role: RoleTimestamp, Description: "Account opening date"},
		{Name: "account_type", Type: "string", Role: RoleEnum, Description: "Account type",
			EnumValues: []string{"checking", "savings", "credit", "investment"}},
		{Name: "branch", Type: "string", Role: RoleCategory, Description: "Branch name"},
	},
}

var shipments = SchemaDef{
	Collection: "shipments",
	Domain:     "logistics",
	Fields: []FieldDef{
		{Name: "shipment_id", Type: "string", Role: RoleIdentifier, Description: "Shipment ID"},
		{Name: "weight_kg", Type: "double", Role: RoleMeasure, Description: "Shipment weight in kg"},
		{Name: "shipped_at", Type: "date", Role: RoleTimestamp, Description: "Shipment date"},
		{Name: "carrier", Type: "string", Role: RoleCategory, Description: "Shipping carrier"},
		{Name: "status", Type: "string", Role: RoleEnum, Description: "Shipment status",
			EnumValues: []string{"processing", "in_transit", "delivered", "returned"}},
		{Name: "is_fragile", Type: "bool", Role: RoleBoolean, Description: "Fragile handling required"},
	},
}

var warehouses = SchemaDef{
	Collection: "warehouses",
	Domain:     "logistics",
	Fields: []FieldDef{
		{Name: "warehouse_id", Type: "string", Role: RoleIdentifier, Description: "Warehouse ID"},
		{Name: "capacity", Type: "int", Role: RoleMeasure, Description: "Max storage units"},
		{Name: "opened_date", Type: "date", Role: RoleTimestamp, Description: "Date warehouse opened"},
		{Name: "region", Type: "string", Role: RoleCategory, Description: "Geographic region"},
		{Name: "is_climate_controlled", Type: "bool", Role: RoleBoolean, Description: "Has climate control"},
	},
}

var posts = SchemaDef{
	Collection: "posts",
	Domain:     "social",
	Fields: []FieldDef{
		{Name: "post_id", Type: "string", Role: RoleIdentifier, Description: "Post ID"},
		{Name: "author_id", Type: "string", Role: RoleIdentifier, Description: "Author reference"},
		{Name: "likes", Type: "int", Role: RoleMeasure, Description: "Number of likes"},
		{Name: "published_at", Type: "date", Role: RoleTimestamp, Description: "Publication timestamp"},
		{Name: "topic", Type: "string", Role: RoleCategory, Description: "Post topic"},
		{Name: "content", Type: "string", Role: RoleText, Description: "Post body text"},
		{Name: "is_pinned", Type: "bool", Role: RoleBoolean, Description: "Whether post is pinned"},
	},
}

var userActivity = SchemaDef{
	Collection: "user_activity",
	Domain:     "social",
	Fields: []FieldDef{
		{Name: "activity_id", Type: "string", Role: RoleIdentifier, Description: "Activity ID"},
		{Name: "user_id", Type: "string", Role: RoleIdentifier, Description: "User reference"},
		{Name: "duration_sec", Type: "int", Role: RoleMeasure, Description: "Activity duration in seconds"},
		{Name: "occurred_at", Type: "date", Role: RoleTimestamp, Description: "Activity timestamp"},
		{Name: "action_type", Type: "string", Role: RoleEnum, Description: "Type of action",
			EnumValues: []string{"login", "logout", "post", "comment", "share"}},
		{Name: "platform", Type: "string", Role: RoleCategory, Description: "Client platform"},
	},
}

var enrollments = SchemaDef{
	Collection: "enrollments",
	Domain:     "education",
	Fields: []FieldDef{
		{Name: "enrollment_id", Type: "string", Role: RoleIdentifier, Description: "Enrollment ID"},
		{Name: "student_id", Type: "string", Role: RoleIdentifier, Description: "Student reference"},
		{Name: "grade", Type: "double", Role: RoleMeasure, Description: "Final grade (0-100)"},
		{Name: "enrolled_at", Type: "date", Role: RoleTimestamp, Description: "Enrollment date"},
		{Name: "course", Type: "string", Role: RoleCategory, Description: "Course name"},
		{Name: "status", Type: "string", Role: RoleEnum, Description: "Enrollment status",
			EnumValues: []string{"active", "completed", "dropped", "waitlisted"}},
		{Name: "is_auditing", Type: "bool", Role: RoleBoolean, Description: "Auditing (no credit)"},
	},
}

// Held-out schemas. These collections never appear in a training split.

var museumExhibits = SchemaDef{
	Collection: "museum_exhibits",
	Domain:     "culture",
	Fields: []FieldDef{
		{Name: "exhibit_id", Type: "string", Role: RoleIdentifier, Description: "Exhibit identifier"},
		{Name: "title", Type: "string", Role: RoleText, Description: "Exhibit title"},
		{Name: "visitor_count", Type: "int", Role: RoleMeasure, Description: "Total visitors"},
		{Name: "opened_on", Type: "date", Role: RoleTimestamp, Description: "Opening date"},
		{Name: "wing", Type: "string", Role: RoleCategory, Description: "Museum wing"},
		{Name: "medium", Type: "string", Role: RoleEnum, Description: "Art medium",
			EnumValues: []string{"painting", "sculpture", "photography", "installation", "mixed_media"}},
		{Name: "is_permanent", Type: "bool", Role: RoleBoolean, Description: "Permanent exhibit"},
	},
}

var weatherStations = SchemaDef{
	Collection: "weather_stations",
	Domain:     "meteorology",
	Fields: []FieldDef{
		{Name: "station_id", Type: "string", Role: RoleIdentifier, Description: "Station identifier"},
		{Name: "temperature_c", Type: "double", Role: RoleMeasure, Description: "Temperature in Celsius"},
		{Name: "recorded_at", Type: "date", Role: RoleTimestamp, Description: "Recording timestamp"},
		{Name: "region", Type: "string", Role: RoleCategory, Description: "Geographic region"},
		{Name: "condition", Type: "string", Role: RoleEnum, Description: "Weather condition",
			EnumValues: []string{"clear", "cloudy", "rain", "snow", "storm"}},
		{Name: "humidity_pct", Type: "double", Role: RoleMeasure, Description: "Relative humidity %"},
	},
}

var fleetVehicles = SchemaDef{
	Collection: "fleet_vehicles",
	Domain:     "transportation",
	Fields: []FieldDef{
		{Name: "vehicle_id", Type: "string", Role: RoleIdentifier, Description: "Vehicle identifier"},
		{Name: "mileage", Type: "int", Role: RoleMeasure, Description: "Odometer reading"},
		{Name: "last_service", Type: "date", Role: RoleTimestamp, Description: "Last service date"},
		{Name: "vehicle_type", Type: "string", Role: RoleEnum, Description: "Vehicle type",
			EnumValues: []string{"sedan", "suv", "truck", "van", "bus"}},
		{Name: "depot", Type: "string", Role: RoleCategory, Description: "Home depot"},
		{Name: "is_available", Type: "bool", Role: RoleBoolean, Description: "Currently available"},
		{Name: "fuel_cost", Type: "double", Role: RoleMeasure, Description: "Monthly fuel cost"},
	},
}

var trainSchemas = []SchemaDef{
	orders, products, customers,
	patientVisits, labResults,
	sensorReadings, deviceLogs,
	employees, performanceReviews,
	transactions, accounts,
	shipments, warehouses,
	posts, userActivity,
	enrollments,
}

var heldOutSchemas = []SchemaDef{
	museumExhibits, weatherStations, fleetVehicles,
}

// TrainSchemas returns the training-split schemas. The returned slice is a
// copy; callers may reorder it freely.
func TrainSchemas() []SchemaDef {
	out := make([]SchemaDef, len(trainSchemas))
	copy(out, trainSchemas)
	return out
}

// HeldOutSchemas returns the held-out schemas.
func HeldOutSchemas() []SchemaDef {
	out := make([]SchemaDef, len(heldOutSchemas))
	copy(out, heldOutSchemas)
	return out
}

// AllSchemas returns training schemas followed by held-out schemas.
func AllSchemas() []SchemaDef {
	out := make([]SchemaDef, 0, len(trainSchemas)+len(heldOutSchemas))
	out = append(out, trainSchemas...)
	out = append(out, heldOutSchemas...)
	return out
}

// HeldOutCollections returns the set of held-out collection names.
func HeldOutCollections() map[string]struct{} {
	out := make(map[string]struct{}, len(heldOutSchemas))
	for _, s := range heldOutSchemas {
		out[s.Collection] = struct{}{}
	}
	return out
}

// ByCollection looks a schema up by collection name across the whole
// catalog. Returns false when no schema has that name.
func ByCollection(name string) (SchemaDef, bool) {
	for _, s := range trainSchemas {
		if s.Collection == name {
			return s, true
		}
	}
	for _, s := range heldOutSchemas {
		if s.Collection == name {
			return s, true
		}
	}
	return SchemaDef{}, false
}
