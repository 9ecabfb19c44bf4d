package model

// SnapshotRow mirrors the Parquet schema for one aggregated account in the
// optional columnar snapshot. Descriptor fields are optional since carry-forward
// columns may be missing from the source export.
type SnapshotRow struct {
	PatientAccount string  `parquet:"patient_account"`
	TotalPaid      float64 `parquet:"total_amount_paid_cumulative"`

	PatientName   *string `parquet:"patient_name,optional"`
	LocationName  *string `parquet:"location_name,optional"`
	InsuranceName *string `parquet:"insurance_name,optional"`

	FirstName *string `parquet:"first_name,optional"`
	LastName  *string `parquet:"last_name,optional"`
}
