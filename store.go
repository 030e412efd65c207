/*
Copyright © 2024 the RUQ authors.
This file is part of RUQ.

RUQ is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

RUQ is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with RUQ.  If not, see <http://www.gnu.org/licenses/>.
*/

package ruq

import (
	"context"
	"fmt"

	"github.com/ctessum/sparse"
)

// FieldStore loads and saves named numeric arrays. Load must return a
// *MissingArtifactError when the key does not exist, and Save must not
// leave a partially written artifact behind if it fails.
type FieldStore interface {
	Load(ctx context.Context, key string) (*sparse.DenseArray, error)
	Save(ctx context.Context, key string, data *sparse.DenseArray) error
}

// Keys of the arrays that are shared between stages.
const (
	KeyConcentrationAll      = "cfield/all"
	KeyConcentrationMean     = "cfield/ensemble"
	KeyConcentrationVariance = "cfield/ensemble_v"
	KeyPermeability          = "kfields"
	KeyFlowAll               = "sflow"
	KeyReliability           = "reliability_field"
	KeyRiskMean              = "risk_ensemble"
	KeyRiskVariance          = "risk_ensemble_v"
	KeyResilienceAll         = "resilience_field"
	KeyResilienceMean        = "resilience_ensemble"
	KeyResilienceVariance    = "resilience_ensemble_v"
	KeyEta                   = "eta"
	KeyMaxRisk               = "maxrisk"
	KeyMaxResilience         = "maxresilience"
	KeyWellMaxConcentration  = "obwells_maxconc"
)

// KeyConcentration is the key of the concentration field of realization i.
func KeyConcentration(i int) string { return fmt.Sprintf("cfield/%d", i) }

// KeyFlow is the key of the flow velocity grid of realization i.
func KeyFlow(i int) string { return fmt.Sprintf("flow/%d", i) }

// KeyExceedance is the key of the exceedance indicator of realization i.
func KeyExceedance(i int) string { return fmt.Sprintf("exceedance/%d", i) }

// KeyResilience is the key of the resilience field of realization i.
func KeyResilience(i int) string { return fmt.Sprintf("resilience/%d", i) }

// KeyRisk is the key of the risk ratio field of realization i.
func KeyRisk(i int) string { return fmt.Sprintf("risk/%d", i) }

// KeySurvival is the key of the survival curves of observation well i.
func KeySurvival(i int) string { return fmt.Sprintf("survival/well_%d", i) }

// KeyPlumeEdge is the key of the plume edge track of realization i.
func KeyPlumeEdge(i int) string { return fmt.Sprintf("referencepoints/edge_%d", i) }

// KeyMaxConcTrack is the key of the track of the concentration maximum of
// realization i.
func KeyMaxConcTrack(i int) string { return fmt.Sprintf("referencepoints/maxconc_%d", i) }
